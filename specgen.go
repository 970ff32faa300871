package scripthost

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// specParamJSON and specFnJSON are the JSON shape DumpSpecs writes, one
// file per capability. They're a small, host-stable document guest
// tooling (editors, codegen) can read without linking this module.
type specParamJSON struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type specFnJSON struct {
	Name    string          `json:"name"`
	Params  []specParamJSON `json:"params"`
	Return  string          `json:"return"`
	Doc     string          `json:"doc,omitempty"`
}

// DumpSpecs writes `<capability>.json` into dir for every capability with
// at least one registered function, listing each function's name,
// parameters, return type, and doc comment.
func DumpSpecs(dir string, fns map[string]*ScriptFnMetadata, versions VersionTable) error {
	byCapability := make(map[string][]specFnJSON)
	for _, m := range fns {
		params := make([]specParamJSON, 0, len(m.EffectiveParams()))
		for _, p := range m.EffectiveParams() {
			display := p.TypeDisplay
			if display == "" {
				display = p.Type.String()
			}
			params = append(params, specParamJSON{Name: p.Name, Type: display})
		}
		byCapability[m.Capability] = append(byCapability[m.Capability], specFnJSON{
			Name:   m.Name,
			Params: params,
			Return: m.Return.String(),
			Doc:    m.Doc,
		})
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating spec output directory: %w", err)
	}

	for capability, fnList := range byCapability {
		sort.Slice(fnList, func(i, j int) bool { return fnList[i].Name < fnList[j].Name })
		data, err := json.MarshalIndent(fnList, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling spec for capability %q: %w", capability, err)
		}
		path := filepath.Join(dir, capability+".json")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("writing spec for capability %q: %w", capability, err)
		}
	}
	return nil
}
