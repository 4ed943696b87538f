// Package rule holds the sharding and encrypt rules the router and rewriter
// read. A RuleSet is loaded from YAML and is read-only afterwards.
package rule

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidRule is returned for rule documents that cannot be used.
var ErrInvalidRule = errors.New("invalid rule")

type RuleSet struct {
	DeclaredDataSources []string          `yaml:"dataSources,omitempty" json:"dataSources,omitempty"`
	Sharding            ShardingRule      `yaml:"shardingRule" json:"shardingRule"`
	Encrypt             EncryptRule       `yaml:"encryptRule,omitempty" json:"encryptRule,omitempty"`
	Props               map[string]string `yaml:"props,omitempty" json:"props,omitempty"`

	nodes    map[string][]DataNode
	encrypts map[string]map[string]EncryptColumn
}

type ShardingRule struct {
	DefaultDataSource string               `yaml:"defaultDataSourceName,omitempty" json:"defaultDataSourceName,omitempty"`
	Tables            map[string]TableRule `yaml:"tables,omitempty" json:"tables,omitempty"`
	BroadcastTables   []string             `yaml:"broadcastTables,omitempty" json:"broadcastTables,omitempty"`
}

// TableRule maps one logical table onto its actual data nodes.
type TableRule struct {
	ActualDataNodes string `yaml:"actualDataNodes" json:"actualDataNodes"`
}

type EncryptRule struct {
	Tables     map[string]EncryptTable `yaml:"tables,omitempty" json:"tables,omitempty"`
	Encryptors map[string]Encryptor    `yaml:"encryptors,omitempty" json:"encryptors,omitempty"`
}

type EncryptTable struct {
	Columns map[string]EncryptColumn `yaml:"columns" json:"columns"`
}

type EncryptColumn struct {
	CipherColumn        string `yaml:"cipherColumn" json:"cipherColumn"`
	PlainColumn         string `yaml:"plainColumn,omitempty" json:"plainColumn,omitempty"`
	AssistedQueryColumn string `yaml:"assistedQueryColumn,omitempty" json:"assistedQueryColumn,omitempty"`
	Encryptor           string `yaml:"encryptor,omitempty" json:"encryptor,omitempty"`
}

type Encryptor struct {
	Type  string            `yaml:"type" json:"type"`
	Props map[string]string `yaml:"props,omitempty" json:"props,omitempty"`
}

// DataNode is one physical table in one data source.
type DataNode struct {
	DataSource string `json:"dataSource"`
	Table      string `json:"table"`
}

func (n DataNode) String() string {
	return n.DataSource + "." + n.Table
}

// Load reads and validates a rule document.
func Load(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is supplied by the operator
	if err != nil {
		return nil, fmt.Errorf("reading rules: %w", err)
	}
	rs, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rs, nil
}

// Parse decodes and validates a YAML rule document.
func Parse(data []byte) (*RuleSet, error) {
	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}
	if err := rs.Validate(); err != nil {
		return nil, err
	}
	return &rs, nil
}

// Validate expands data nodes and checks references. It indexes tables
// case-insensitively and must run before lookups; Parse calls it.
func (rs *RuleSet) Validate() error {
	rs.nodes = make(map[string][]DataNode, len(rs.Sharding.Tables))
	for name, table := range rs.Sharding.Tables {
		expanded, err := ExpandInline(table.ActualDataNodes)
		if err != nil {
			return fmt.Errorf("table %s: %w", name, err)
		}
		if len(expanded) == 0 {
			return fmt.Errorf("%w: table %s has no actual data nodes", ErrInvalidRule, name)
		}
		nodes := make([]DataNode, 0, len(expanded))
		for _, each := range expanded {
			ds, tbl, ok := strings.Cut(each, ".")
			if !ok || ds == "" || tbl == "" {
				return fmt.Errorf("%w: table %s: data node %q is not <dataSource>.<table>", ErrInvalidRule, name, each)
			}
			nodes = append(nodes, DataNode{DataSource: ds, Table: tbl})
		}
		key := strings.ToLower(name)
		if _, dup := rs.nodes[key]; dup {
			return fmt.Errorf("%w: table %s declared twice", ErrInvalidRule, name)
		}
		rs.nodes[key] = nodes
	}

	rs.encrypts = make(map[string]map[string]EncryptColumn, len(rs.Encrypt.Tables))
	for name, table := range rs.Encrypt.Tables {
		columns := make(map[string]EncryptColumn, len(table.Columns))
		for column, cfg := range table.Columns {
			if cfg.CipherColumn == "" {
				return fmt.Errorf("%w: encrypt column %s.%s has no cipherColumn", ErrInvalidRule, name, column)
			}
			if cfg.Encryptor != "" {
				if _, ok := rs.Encrypt.Encryptors[cfg.Encryptor]; !ok {
					return fmt.Errorf("%w: encrypt column %s.%s uses unknown encryptor %q", ErrInvalidRule, name, column, cfg.Encryptor)
				}
			}
			columns[strings.ToLower(column)] = cfg
		}
		rs.encrypts[strings.ToLower(name)] = columns
	}

	if rs.Sharding.DefaultDataSource == "" && len(rs.DeclaredDataSources) == 0 && len(rs.nodes) == 0 {
		return fmt.Errorf("%w: no data sources", ErrInvalidRule)
	}
	if len(rs.DeclaredDataSources) > 0 {
		known := make(map[string]bool, len(rs.DeclaredDataSources))
		for _, ds := range rs.DeclaredDataSources {
			known[ds] = true
		}
		for _, ds := range rs.referencedDataSources() {
			if !known[ds] {
				return fmt.Errorf("%w: data source %q is not declared", ErrInvalidRule, ds)
			}
		}
	}
	return nil
}

func (rs *RuleSet) referencedDataSources() []string {
	seen := make(map[string]bool)
	var result []string
	add := func(ds string) {
		if ds != "" && !seen[ds] {
			seen[ds] = true
			result = append(result, ds)
		}
	}
	add(rs.Sharding.DefaultDataSource)
	for _, nodes := range rs.nodes {
		for _, n := range nodes {
			add(n.DataSource)
		}
	}
	sort.Strings(result)
	return result
}

// DataSources returns every known data source, sorted.
func (rs *RuleSet) DataSources() []string {
	if len(rs.DeclaredDataSources) == 0 {
		return rs.referencedDataSources()
	}
	result := append([]string(nil), rs.DeclaredDataSources...)
	sort.Strings(result)
	return result
}

// DataNodes returns the actual data nodes of a logical table, or nil.
func (rs *RuleSet) DataNodes(logical string) []DataNode {
	return rs.nodes[strings.ToLower(logical)]
}

func (rs *RuleSet) IsSharded(logical string) bool {
	_, ok := rs.nodes[strings.ToLower(logical)]
	return ok
}

func (rs *RuleSet) IsBroadcast(logical string) bool {
	for _, each := range rs.Sharding.BroadcastTables {
		if strings.EqualFold(each, logical) {
			return true
		}
	}
	return false
}

// CipherColumn returns the cipher column configured for table.column.
func (rs *RuleSet) CipherColumn(table, column string) (string, bool) {
	cfg, ok := rs.EncryptColumn(table, column)
	if !ok {
		return "", false
	}
	return cfg.CipherColumn, true
}

func (rs *RuleSet) EncryptColumn(table, column string) (EncryptColumn, bool) {
	columns, ok := rs.encrypts[strings.ToLower(table)]
	if !ok {
		return EncryptColumn{}, false
	}
	cfg, ok := columns[strings.ToLower(column)]
	return cfg, ok
}

// IsEncrypted reports whether table has any encrypt column.
func (rs *RuleSet) IsEncrypted(table string) bool {
	_, ok := rs.encrypts[strings.ToLower(table)]
	return ok
}

// Marshal renders the rule set as YAML.
func (rs *RuleSet) Marshal() ([]byte, error) {
	return yaml.Marshal(rs)
}
