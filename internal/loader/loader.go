// Package loader implements component A: it walks the resource
// directory's clients/ and groups/ subdirectories, decodes the TOML
// documents found there, and produces raw resource records keyed by
// file basename, ready for variable substitution and typed parsing.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"pullconf/internal/resource"
	"pullconf/internal/variables"
)

// ClientDocument is one clients/*.toml file, decoded but not yet
// substituted or typed.
type ClientDocument struct {
	Hostname   string // basename of the file, minus ".toml"
	File       string
	APIKeyHash string
	Variables  map[string]variables.Value
	Resources  []resource.RawResource
	Groups     []string
}

// GroupDocument is one groups/*.toml file, decoded but not yet
// substituted or typed.
type GroupDocument struct {
	Name      string
	File      string
	Resources []resource.RawResource
}

// clientTopLevelKeys and groupTopLevelKeys bound what each document
// kind may declare at its root (spec.md §4.A: unknown top-level keys
// fail the file).
var clientTopLevelKeys = map[string]bool{
	"api_key_hash": true,
	"variables":    true,
	"resources":    true,
	"groups":       true,
}

var groupTopLevelKeys = map[string]bool{
	"resources": true,
}

// Load walks resourceDir/clients and resourceDir/groups, returning one
// ClientDocument per clients/*.toml file and one GroupDocument per
// groups/*.toml file. The first file that fails to read or parse
// aborts the whole load (spec.md §4.A): a bad reload must never
// silently drop a client.
func Load(resourceDir string) ([]ClientDocument, []GroupDocument, error) {
	clientFiles, err := tomlFiles(filepath.Join(resourceDir, "clients"))
	if err != nil {
		return nil, nil, err
	}
	groupFiles, err := tomlFiles(filepath.Join(resourceDir, "groups"))
	if err != nil {
		return nil, nil, err
	}

	clients := make([]ClientDocument, 0, len(clientFiles))
	for _, path := range clientFiles {
		doc, err := loadClient(path)
		if err != nil {
			return nil, nil, err
		}
		clients = append(clients, doc)
	}

	groups := make([]GroupDocument, 0, len(groupFiles))
	for _, path := range groupFiles {
		doc, err := loadGroup(path)
		if err != nil {
			return nil, nil, err
		}
		groups = append(groups, doc)
	}

	return clients, groups, nil
}

// tomlFiles lists the *.toml files directly under dir, ignoring
// subdirectories, hidden files, and any other suffix, sorted for
// deterministic load order.
func tomlFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".toml") {
			continue
		}
		out = append(out, filepath.Join(dir, name))
	}
	sort.Strings(out)
	return out, nil
}

func basenameWithoutExt(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func loadClient(path string) (ClientDocument, error) {
	hostname := basenameWithoutExt(path)

	var raw map[string]interface{}
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return ClientDocument{}, &resource.ConfigError{File: path, Resource: hostname, Reason: fmt.Sprintf("TOML syntax error: %s", err)}
	}
	if err := checkTopLevelKeys(path, hostname, raw, clientTopLevelKeys); err != nil {
		return ClientDocument{}, err
	}

	doc := ClientDocument{Hostname: hostname, File: path}

	if v, ok := raw["api_key_hash"]; ok {
		s, ok := v.(string)
		if !ok {
			return ClientDocument{}, &resource.ConfigError{File: path, Resource: hostname, Field: "api_key_hash", Reason: "must be a string"}
		}
		if !resource.ValidAPIKeyHash(s) {
			return ClientDocument{}, &resource.ConfigError{File: path, Resource: hostname, Field: "api_key_hash", Reason: "must be 64 lowercase hex characters (a SHA-256 digest)"}
		}
		doc.APIKeyHash = s
	}

	vars, err := decodeVariables(path, hostname, raw["variables"])
	if err != nil {
		return ClientDocument{}, err
	}
	doc.Variables = vars

	resources, err := decodeResources(path, hostname, raw["resources"])
	if err != nil {
		return ClientDocument{}, err
	}
	doc.Resources = resources

	if v, ok := raw["groups"]; ok {
		items, ok := v.([]interface{})
		if !ok {
			return ClientDocument{}, &resource.ConfigError{File: path, Resource: hostname, Field: "groups", Reason: "must be an array of strings"}
		}
		for _, item := range items {
			s, ok := item.(string)
			if !ok {
				return ClientDocument{}, &resource.ConfigError{File: path, Resource: hostname, Field: "groups", Reason: "array elements must be strings"}
			}
			doc.Groups = append(doc.Groups, s)
		}
	}

	return doc, nil
}

func loadGroup(path string) (GroupDocument, error) {
	name := basenameWithoutExt(path)

	var raw map[string]interface{}
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return GroupDocument{}, &resource.ConfigError{File: path, Resource: name, Reason: fmt.Sprintf("TOML syntax error: %s", err)}
	}
	if err := checkTopLevelKeys(path, name, raw, groupTopLevelKeys); err != nil {
		return GroupDocument{}, err
	}

	resources, err := decodeResources(path, name, raw["resources"])
	if err != nil {
		return GroupDocument{}, err
	}

	return GroupDocument{Name: name, File: path, Resources: resources}, nil
}

func checkTopLevelKeys(path, name string, raw map[string]interface{}, allowed map[string]bool) error {
	for k := range raw {
		if !allowed[k] {
			return &resource.ConfigError{File: path, Resource: name, Field: k, Reason: "unknown top-level key"}
		}
	}
	return nil
}

func decodeVariables(path, name string, v interface{}) (map[string]variables.Value, error) {
	if v == nil {
		return nil, nil
	}
	table, ok := v.(map[string]interface{})
	if !ok {
		return nil, &resource.ConfigError{File: path, Resource: name, Field: "variables", Reason: "must be a table"}
	}
	out := make(map[string]variables.Value, len(table))
	for k, raw := range table {
		val, err := variables.FromAny(raw)
		if err != nil {
			return nil, &resource.ConfigError{File: path, Resource: name, Field: "variables." + k, Reason: err.Error()}
		}
		out[k] = val
	}
	return out, nil
}

// decodeResources turns the decoded `resources` array into raw
// resource records, splitting off the "type", "ensure", and
// "requires" meta-parameters (never substituted, per spec.md §4.B)
// from the rest of the attribute fields.
func decodeResources(path, docName string, v interface{}) ([]resource.RawResource, error) {
	if v == nil {
		return nil, nil
	}
	items, ok := v.([]map[string]interface{})
	if !ok {
		asIfaceSlice, okIface := v.([]interface{})
		if !okIface {
			return nil, &resource.ConfigError{File: path, Resource: docName, Field: "resources", Reason: "must be an array of tables"}
		}
		items = make([]map[string]interface{}, 0, len(asIfaceSlice))
		for _, e := range asIfaceSlice {
			m, ok := e.(map[string]interface{})
			if !ok {
				return nil, &resource.ConfigError{File: path, Resource: docName, Field: "resources", Reason: "must be an array of tables"}
			}
			items = append(items, m)
		}
	}

	out := make([]resource.RawResource, 0, len(items))
	for i, item := range items {
		resName := fmt.Sprintf("%s[%d]", docName, i)

		typ, _ := item["type"].(string)
		if typ == "" {
			return nil, &resource.ConfigError{File: path, Resource: resName, Field: "type", Reason: "missing required field"}
		}
		if name, ok := item["name"].(string); ok {
			resName = name
		}

		ensure, _ := item["ensure"].(string)

		var requires []string
		if rv, ok := item["requires"]; ok {
			list, ok := rv.([]interface{})
			if !ok {
				return nil, &resource.ConfigError{File: path, Resource: resName, Field: "requires", Reason: "must be an array of strings"}
			}
			for _, r := range list {
				s, ok := r.(string)
				if !ok {
					return nil, &resource.ConfigError{File: path, Resource: resName, Field: "requires", Reason: "array elements must be strings"}
				}
				requires = append(requires, s)
			}
		}

		fields := make(map[string]variables.Value, len(item))
		for k, raw := range item {
			if k == "type" || k == "ensure" || k == "requires" {
				continue
			}
			val, err := variables.FromAny(raw)
			if err != nil {
				return nil, &resource.ConfigError{File: path, Resource: resName, Field: k, Reason: err.Error()}
			}
			fields[k] = val
		}

		out = append(out, resource.RawResource{Name: resName, Type: typ, Ensure: ensure, Requires: requires, Fields: fields})
	}

	return out, nil
}
