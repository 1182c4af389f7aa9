package clopa_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/crewlinker/clawsnip/clopa"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
)

var _ = Describe("rego evaluator", func() {
	var eval clopa.Evaluator
	var policy, item []byte

	BeforeEach(func() {
		eval = clopa.NewRego(zap.NewNop())
		policy = readTestdata("s3_versioning.rego")
		item = readTestdata("bucket_item.json")
	})

	It("should evaluate to true for a compliant item", func(ctx context.Context) {
		Expect(eval.Evaluate(ctx, policy, item, "data.s3.versioning.compliant")).To(BeTrue())
	})

	It("should evaluate to false for a non-compliant item", func(ctx context.Context) {
		Expect(eval.Evaluate(ctx, policy, []byte(`{"resourceType":"AWS::S3::Bucket"}`),
			"data.s3.versioning.compliant")).To(BeFalse())
	})

	It("should return non-bool values", func(ctx context.Context) {
		Expect(eval.Evaluate(ctx, policy, item, "data.s3.versioning.reason")).To(Equal("bucket my-bucket"))
	})

	It("should return nil for undefined rules", func(ctx context.Context) {
		Expect(eval.Evaluate(ctx, policy, item, "data.s3.versioning.not_a_rule")).To(BeNil())
	})

	It("should fail on invalid policies", func(ctx context.Context) {
		_, err := eval.Evaluate(ctx, []byte(`package broken x :=`), item, "data.broken.x")
		Expect(err).To(MatchError(ContainSubstring("failed to evaluate")))
	})

	It("should fail on invalid input", func(ctx context.Context) {
		_, err := eval.Evaluate(ctx, policy, []byte(`{`), "data.s3.versioning.compliant")
		Expect(err).To(MatchError(ContainSubstring("failed to decode input")))
	})
})

var _ = Describe("binary evaluator", func() {
	var eval clopa.Evaluator
	var dir, argsFile string

	// fakeOPA writes a script that records its arguments and prints the given output.
	fakeOPA := func(output string) string {
		bin := filepath.Join(dir, "opa")
		Expect(os.WriteFile(bin, []byte(fmt.Sprintf("#!/bin/sh\necho \"$@\" > %s\ncat <<'JSON'\n%s\nJSON\n",
			argsFile, output)), 0o700)).To(Succeed())

		return bin
	}

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		argsFile = filepath.Join(dir, "args.txt")
	})

	It("should run opa eval and return the matching expression", func(ctx context.Context) {
		eval = clopa.NewBinary(clopa.Config{
			OPABinary: fakeOPA(`{"result":[{"expressions":[` +
				`{"value":"other","text":"data.other"},` +
				`{"value":true,"text":"data.s3.versioning.compliant"}]}]}`),
			TempDir: dir,
		}, zap.NewNop())

		Expect(eval.Evaluate(ctx, []byte("package x"), []byte(`{}`), "data.s3.versioning.compliant")).To(BeTrue())

		args, err := os.ReadFile(argsFile)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(args)).To(MatchRegexp(`^eval -f json -d \S+policy-\d+\.rego -i \S+input-\d+\.json ` +
			`data\.s3\.versioning\.compliant\n$`))

		By("removing the temp files")
		Expect(filepath.Glob(filepath.Join(dir, "policy-*"))).To(BeEmpty())
		Expect(filepath.Glob(filepath.Join(dir, "input-*"))).To(BeEmpty())
	})

	It("should return nil for an undefined result", func(ctx context.Context) {
		eval = clopa.NewBinary(clopa.Config{OPABinary: fakeOPA(`{}`), TempDir: dir}, zap.NewNop())
		Expect(eval.Evaluate(ctx, []byte("package x"), []byte(`{}`), "data.x.y")).To(BeNil())
	})

	It("should fail when the binary cannot run", func(ctx context.Context) {
		eval = clopa.NewBinary(clopa.Config{OPABinary: filepath.Join(dir, "not-exist"), TempDir: dir}, zap.NewNop())

		_, err := eval.Evaluate(ctx, []byte("package x"), []byte(`{}`), "data.x.y")
		Expect(err).To(MatchError(ContainSubstring("failed to run opa")))
		Expect(filepath.Glob(filepath.Join(dir, "input-*"))).To(BeEmpty())
	})

	It("should fail on output that is not json", func(ctx context.Context) {
		eval = clopa.NewBinary(clopa.Config{OPABinary: fakeOPA(`nope`), TempDir: dir}, zap.NewNop())

		_, err := eval.Evaluate(ctx, []byte("package x"), []byte(`{}`), "data.x.y")
		Expect(err).To(MatchError(ContainSubstring("failed to decode opa output")))
	})
})

var _ = Describe("engine selection", func() {
	It("should select by config", func() {
		Expect(clopa.NewEvaluator(clopa.Config{Engine: "rego"}, zap.NewNop())).To(BeAssignableToTypeOf(&clopa.Rego{}))
		Expect(clopa.NewEvaluator(clopa.Config{Engine: "binary"}, zap.NewNop())).To(
			BeAssignableToTypeOf(&clopa.Binary{}))

		_, err := clopa.NewEvaluator(clopa.Config{Engine: "wasm"}, zap.NewNop())
		Expect(err).To(MatchError(clopa.ErrUnsupportedEngine))
	})
})

func readTestdata(name string) []byte {
	data, err := os.ReadFile(filepath.Join("testdata", name))
	Expect(err).ToNot(HaveOccurred())

	return data
}
