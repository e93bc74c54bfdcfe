package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"Get-Meraki-Devices/pkg/records"
)

// WriteYAML writes every field of every record, site first, as a YAML sequence.
// Numbers are emitted with the exact digits the API sent.
func WriteYAML(w io.Writer, recs []records.Record) error {
	doc := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for _, rec := range recs {
		doc.Content = append(doc.Content, mappingNode(rec.Full(), records.SiteField))
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

// PersistYAML writes recs to path as YAML. An empty path does nothing.
func PersistYAML(path string, recs []records.Record) error {
	if path == "" {
		return nil
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create YAML file: %w", err)
	}
	if err := WriteYAML(file, recs); err != nil {
		_ = file.Close()
		return fmt.Errorf("write YAML file %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close YAML file %s: %w", path, err)
	}
	return nil
}

// mappingNode emits keys sorted, with first (if present) leading.
func mappingNode(m map[string]any, first string) *yaml.Node {
	keys := make([]string, 0, len(m))
	for k := range m {
		if first == "" || k != first {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if _, ok := m[first]; ok && first != "" {
		keys = append([]string{first}, keys...)
	}

	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, k := range keys {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
			valueNode(m[k]))
	}
	return node
}

func valueNode(v any) *yaml.Node {
	switch t := v.(type) {
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	case json.Number:
		tag := "!!float"
		if _, err := t.Int64(); err == nil {
			tag = "!!int"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: t.String()}
	case map[string]any:
		return mappingNode(t, "")
	case []any:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range t {
			seq.Content = append(seq.Content, valueNode(item))
		}
		return seq
	default:
		var n yaml.Node
		if err := n.Encode(t); err != nil {
			return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: records.Text(t)}
		}
		return &n
	}
}
