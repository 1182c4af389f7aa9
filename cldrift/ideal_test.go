package cldrift_test

import (
	"github.com/crewlinker/clawsnip/cldrift"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var tgt = cldrift.Target{Table: "inventory", SettingsGroup: "web"}

const prefix = `SELECT * FROM "paas-config-mgmt"."inventory" WHERE settingsgroup='web'`

var _ = Describe("build query", func() {
	DescribeTable("single entries", func(doc, exp string) {
		ideal, err := cldrift.ParseIdeal([]byte(doc))
		Expect(err).ToNot(HaveOccurred())
		Expect(cldrift.BuildQuery(ideal, tgt)).To(Equal(exp))
	},
		Entry("empty document", `{}`, ``),
		Entry("empty category", `{"common":{}}`, ``),
		Entry("plain value", `{"common":{"Timezone":"UTC"}}`,
			prefix+` AND key='Timezone' AND value!='UTC'`),
		Entry("list value", `{"common":{"NTP":["a.ntp","b.ntp"]}}`,
			prefix+` AND key='NTP' AND value NOT IN ('a.ntp', 'b.ntp')`),
		Entry("wildcard value", `{"common":{"Domain":"{*}.example.com"}}`,
			prefix+` AND key='Domain' AND value NOT LIKE '%.example.com'`),
		Entry("condition token", `{"common":{"MaxSessions":"{condition:>}10"}}`,
			prefix+` AND key='MaxSessions' AND value > '10'`),
		Entry("number value", `{"common":{"Port":443}}`,
			prefix+` AND key='Port' AND value!='443'`),
		Entry("bool value", `{"common":{"Enabled":true}}`,
			prefix+` AND key='Enabled' AND value!='true'`),
		Entry("subkey", `{"common":{"Service":{"sshd":"running"}}}`,
			prefix+` AND key='Service' AND subkey='sshd' AND value!='running'`),
		Entry("wildcard subkey", `{"common":{"Service":{"{*}":"running"}}}`,
			prefix+` AND key='Service' AND value!='running'`),
		Entry("partial wildcard subkey", `{"common":{"Service":{"ssh{*}":"running"}}}`,
			prefix+` AND key='Service' AND subkey LIKE 'ssh%' AND value!='running'`),
		Entry("subkey with list", `{"common":{"Package":{"openssl":["3.0","3.1"]}}}`,
			prefix+` AND key='Package' AND subkey='openssl' AND value NOT IN ('3.0', '3.1')`),
		Entry("quotes", `{"common":{"Motd":"it's fine"}}`,
			prefix+` AND key='Motd' AND value!='it''s fine'`),
	)

	It("should join statements in sorted order", func() {
		ideal, err := cldrift.ParseIdeal([]byte(`{
			"security": {"Firewall": "on"},
			"common": {"Timezone": "UTC", "Locale": {"LANG": "en_US", "LC_ALL": "{*}"}}
		}`))
		Expect(err).ToNot(HaveOccurred())

		Expect(cldrift.BuildQuery(ideal, tgt)).To(Equal(
			prefix + ` AND key='Locale' AND subkey='LANG' AND value!='en_US'` +
				` UNION ` + prefix + ` AND key='Locale' AND subkey='LC_ALL' AND value NOT LIKE '%'` +
				` UNION ` + prefix + ` AND key='Timezone' AND value!='UTC'` +
				` UNION ` + prefix + ` AND key='Firewall' AND value!='on'`))
	})

	It("should use the configured database", func() {
		ideal := cldrift.Ideal{"common": {"A": "b"}}
		Expect(cldrift.BuildQuery(ideal, cldrift.Target{Database: "db", Table: "t", SettingsGroup: "g"})).To(Equal(
			`SELECT * FROM "db"."t" WHERE settingsgroup='g' AND key='A' AND value!='b'`))
	})

	It("should fail on nested documents", func() {
		ideal, err := cldrift.ParseIdeal([]byte(`{"common":{"A":{"b":{"c":"d"}}}}`))
		Expect(err).ToNot(HaveOccurred())

		_, err = cldrift.BuildQuery(ideal, tgt)
		Expect(err).To(MatchError(cldrift.ErrUnsupportedValue))
	})

	It("should fail on empty lists", func() {
		for _, doc := range []string{`{"c":{"k":[]}}`, `{"c":{"k":{"s":[]}}}`} {
			ideal, err := cldrift.ParseIdeal([]byte(doc))
			Expect(err).ToNot(HaveOccurred())

			_, err = cldrift.BuildQuery(ideal, tgt)
			Expect(err).To(MatchError(cldrift.ErrUnsupportedValue))
		}
	})

	It("should fail on invalid documents", func() {
		_, err := cldrift.ParseIdeal([]byte(`{"common":"x"}`))
		Expect(err).To(MatchError(ContainSubstring("failed to decode ideal configuration")))
	})
})
