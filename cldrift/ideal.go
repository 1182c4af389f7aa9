package cldrift

import (
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/samber/lo"
)

// DefaultDatabase is the Athena database that holds the inventory tables.
const DefaultDatabase = "paas-config-mgmt"

// Wildcard matches anything when used in a subkey or value.
const Wildcard = "{*}"

// conditionRe matches the {condition:OP} token that overwrites the value condition.
var conditionRe = regexp.MustCompile(`\{condition:([^}]*)\}`)

// Ideal is the ideal configuration document: categories hold keys, keys hold a value or subkeys with values.
type Ideal map[string]map[string]any

// Target determines what table and settings group the queries are built for.
type Target struct {
	Database      string
	Table         string
	SettingsGroup string
}

// ParseIdeal parses the ideal configuration document.
func ParseIdeal(data []byte) (ideal Ideal, err error) {
	if err = json.Unmarshal(data, &ideal); err != nil {
		return nil, fmt.Errorf("failed to decode ideal configuration: %w", err)
	}

	return ideal, nil
}

// BuildQuery builds a query that selects every inventory entry that differs from the ideal configuration.
// It returns an empty string when the document holds no entries.
func BuildQuery(ideal Ideal, tgt Target) (string, error) {
	if tgt.Database == "" {
		tgt.Database = DefaultDatabase
	}

	var stmts []string

	for _, cat := range sortedKeys(ideal) {
		for _, key := range sortedKeys(ideal[cat]) {
			switch v := ideal[cat][key].(type) {
			case map[string]any:
				for _, sub := range sortedKeys(v) {
					stmt, err := buildStatement(tgt, key, &sub, v[sub])
					if err != nil {
						return "", fmt.Errorf("failed to build statement for '%s.%s.%s': %w", cat, key, sub, err)
					}

					stmts = append(stmts, stmt)
				}
			default:
				stmt, err := buildStatement(tgt, key, nil, v)
				if err != nil {
					return "", fmt.Errorf("failed to build statement for '%s.%s': %w", cat, key, err)
				}

				stmts = append(stmts, stmt)
			}
		}
	}

	return strings.Join(stmts, " UNION "), nil
}

// buildStatement builds a single select statement for a key, an optional subkey and the ideal value.
func buildStatement(tgt Target, key string, sub *string, val any) (string, error) {
	var bld strings.Builder

	fmt.Fprintf(&bld, `SELECT * FROM "%s"."%s" WHERE settingsgroup='%s' AND key='%s'`,
		tgt.Database, tgt.Table, quote(tgt.SettingsGroup), quote(key))

	if sub != nil && *sub != Wildcard {
		subc, subv := "=", *sub
		if strings.Contains(subv, Wildcard) {
			subc, subv = " LIKE ", strings.ReplaceAll(subv, Wildcard, "%")
		}

		fmt.Fprintf(&bld, ` AND subkey%s'%s'`, subc, quote(subv))
	}

	if list, ok := val.([]any); ok {
		if len(list) == 0 {
			return "", fmt.Errorf("%w: empty list", ErrUnsupportedValue)
		}

		vals, err := stringify(list)
		if err != nil {
			return "", err
		}

		fmt.Fprintf(&bld, ` AND value NOT IN (%s)`, strings.Join(lo.Map(vals, func(s string, _ int) string {
			return "'" + quote(s) + "'"
		}), ", "))

		return bld.String(), nil
	}

	vals, err := stringify([]any{val})
	if err != nil {
		return "", err
	}

	cond, value := valueCondition(vals[0])
	fmt.Fprintf(&bld, ` AND value%s'%s'`, cond, quote(value))

	return bld.String(), nil
}

// valueCondition determines the condition for a scalar value and returns the value as it should be compared.
func valueCondition(val string) (cond, out string) {
	cond, out = "!=", val
	if m := conditionRe.FindStringSubmatch(out); m != nil {
		cond, out = " "+strings.TrimSpace(m[1])+" ", conditionRe.ReplaceAllString(out, "")
	}

	if strings.Contains(out, Wildcard) {
		cond, out = " NOT LIKE ", strings.ReplaceAll(out, Wildcard, "%")
	}

	return cond, out
}

// stringify formats scalar values as they are stored in the inventory.
func stringify(vals []any) ([]string, error) {
	out := make([]string, 0, len(vals))

	for _, v := range vals {
		switch v := v.(type) {
		case string:
			out = append(out, v)
		case float64, bool:
			out = append(out, fmt.Sprint(v))
		case nil:
			out = append(out, "")
		default:
			return nil, fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
		}
	}

	return out, nil
}

// quote escapes single quotes for use in a sql string literal.
func quote(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := lo.Keys(m)
	slices.Sort(keys)

	return keys
}
