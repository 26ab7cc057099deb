package wasm

// Renamer returns the new (module, name) pair for the i-th import.
type Renamer func(i int, imp Import) (module, name string)

// RewriteImports re-encodes the import section with names chosen by rename.
// Other sections are copied unchanged. The original bytes are returned when
// no import changes.
func RewriteImports(data []byte, info *Info, rename Renamer) ([]byte, error) {
	changed := false
	section := EncodeULEB128(uint32(len(info.Imports)))
	for i, imp := range info.Imports {
		mod, name := rename(i, imp)
		if mod != imp.Module || name != imp.Name {
			changed = true
		}
		section = appendName(section, mod)
		section = appendName(section, name)
		section = append(section, byte(imp.Kind))
		section = append(section, imp.Desc...)
	}
	if !changed {
		return data, nil
	}

	result := make([]byte, 0, len(data)+len(section))
	result = append(result, data[:8]...)
	err := walkSections(data, func(id byte, body []byte) error {
		result = append(result, id)
		if id == sectionImport {
			result = append(result, EncodeULEB128(uint32(len(section)))...)
			result = append(result, section...)
			return nil
		}
		result = append(result, EncodeULEB128(uint32(len(body)))...)
		result = append(result, body...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func appendName(buf []byte, s string) []byte {
	buf = append(buf, EncodeULEB128(uint32(len(s)))...)
	return append(buf, s...)
}
