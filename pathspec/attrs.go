package pathspec

import "strconv"

// kind describes the expected Go representation of an attribute value so
// the factory can both validate attributes passed as typed values and
// coerce attributes recovered from a parsed comparable-form string.
type kind int

const (
	kindString kind = iota
	kindInt
	kindBytes
)

type attrSchema struct {
	required []string
	optional []string
	kinds    map[string]kind
}

func (s attrSchema) kindOf(key string) kind {
	if k, ok := s.kinds[key]; ok {
		return k
	}
	return kindString
}

// schemas is the complete addressing-attribute table from §6. Types not
// listed here take no attributes beyond parent linkage (the format-specific
// container types whose decoding is entirely delegated to an external
// back-end: EWF, QCOW, VHDI, VMDK, RAW, SMRAW, MODI, PHDI, GZIP, BZIP2, XZ,
// LZMA).
var schemas = map[Type]attrSchema{
	OS:    {required: []string{"location"}},
	FAKE:  {required: []string{"location"}},
	MOUNT: {required: []string{"identifier"}},

	DATA_RANGE: {
		required: []string{"range_offset", "range_size"},
		kinds:    map[string]kind{"range_offset": kindInt, "range_size": kindInt},
	},
	COMPRESSED_STREAM: {required: []string{"compression_method"}},
	ENCODED_STREAM:    {required: []string{"encoding_method"}},
	ENCRYPTED_STREAM: {
		required: []string{"encryption_method"},
		optional: []string{"cipher_mode", "initialization_vector", "key"},
		kinds:    map[string]kind{"initialization_vector": kindBytes, "key": kindBytes},
	},

	BDE:  {optional: []string{"password", "recovery_password", "startup_key"}},
	FVDE: {optional: []string{"password", "recovery_password", "encrypted_root_plist"}},
	LUKSDE: {optional: []string{"password"}},

	APFS_CONTAINER: {
		optional: []string{"location", "volume_index", "start_offset"},
		kinds:    map[string]kind{"volume_index": kindInt, "start_offset": kindInt},
	},
	LVM: {
		optional: []string{"location", "volume_index", "start_offset"},
		kinds:    map[string]kind{"volume_index": kindInt, "start_offset": kindInt},
	},
	GPT: {
		optional: []string{"location", "part_index", "start_offset"},
		kinds:    map[string]kind{"part_index": kindInt, "start_offset": kindInt},
	},
	APM: {
		optional: []string{"location", "part_index", "start_offset"},
		kinds:    map[string]kind{"part_index": kindInt, "start_offset": kindInt},
	},
	MBR: {
		optional: []string{"location", "part_index", "start_offset"},
		kinds:    map[string]kind{"part_index": kindInt, "start_offset": kindInt},
	},
	TSK_PARTITION: {
		optional: []string{"location", "part_index", "start_offset"},
		kinds:    map[string]kind{"part_index": kindInt, "start_offset": kindInt},
	},
	VSHADOW: {
		optional: []string{"location", "store_index", "start_offset", "identifier"},
		kinds:    map[string]kind{"store_index": kindInt, "start_offset": kindInt},
	},

	APFS: {
		required: []string{"location"},
		optional: []string{"inode", "identifier"},
		kinds:    map[string]kind{"inode": kindInt},
	},
	EXT: {
		required: []string{"location"},
		optional: []string{"inode", "identifier"},
		kinds:    map[string]kind{"inode": kindInt},
	},
	HFS: {
		required: []string{"location"},
		optional: []string{"inode", "identifier"},
		kinds:    map[string]kind{"inode": kindInt},
	},
	NTFS: {
		required: []string{"location"},
		optional: []string{"inode", "identifier", "mft_entry", "data_stream", "mft_attribute"},
		kinds:    map[string]kind{"inode": kindInt, "mft_entry": kindInt, "mft_attribute": kindInt},
	},
	XFS: {
		required: []string{"location"},
		optional: []string{"inode", "identifier"},
		kinds:    map[string]kind{"inode": kindInt},
	},
	FAT: {
		required: []string{"location"},
		optional: []string{"inode", "identifier"},
		kinds:    map[string]kind{"inode": kindInt},
	},
	TSK: {
		required: []string{"location"},
		optional: []string{"inode", "identifier", "mft_entry"},
		kinds:    map[string]kind{"inode": kindInt, "mft_entry": kindInt},
	},

	CPIO: {required: []string{"location"}},
	TAR:  {required: []string{"location"}},
	ZIP:  {required: []string{"location"}},

	SQLITE_BLOB: {
		required: []string{"table_name", "column_name"},
		optional: []string{"row_index", "row_condition"},
		kinds:    map[string]kind{"row_index": kindInt},
	},
}

// validate checks (a) that every required attribute for typ is present and
// of the expected kind, (b) that no unknown attribute was supplied, and
// (c) that parent presence matches typ's rule. It returns a normalized
// attrs map with numeric/byte attributes coerced to their schema kind.
func validate(typ Type, raw map[string]any, parent *PathSpec) (map[string]any, error) {
	if !Known(typ) {
		return nil, errUnsupported(typ)
	}

	if typ.SystemLevel() {
		if parent != nil {
			return nil, errSpec("type '%s' must be a root (no parent)", typ)
		}
	} else if parent == nil {
		return nil, errSpec("type '%s' requires a parent", typ)
	}

	schema := schemas[typ]
	allowed := make(map[string]bool, len(schema.required)+len(schema.optional))
	for _, k := range schema.required {
		allowed[k] = true
	}
	for _, k := range schema.optional {
		allowed[k] = true
	}

	out := make(map[string]any, len(raw))
	for k, v := range raw {
		if !allowed[k] {
			return nil, errSpec("attribute '%s' is not valid for type '%s'", k, typ)
		}
		coerced, err := coerce(schema.kindOf(k), k, v)
		if err != nil {
			return nil, err
		}
		out[k] = coerced
	}

	for _, k := range schema.required {
		if _, ok := out[k]; !ok {
			return nil, errSpec("type '%s' requires attribute '%s'", typ, k)
		}
	}

	return out, nil
}

func coerce(k kind, key string, v any) (any, error) {
	switch k {
	case kindInt:
		switch t := v.(type) {
		case int64:
			return t, nil
		case int:
			return int64(t), nil
		case string:
			i, err := strconv.ParseInt(t, 10, 64)
			if err != nil {
				return nil, errSpec("attribute '%s' must be an integer, got %q", key, t)
			}
			return i, nil
		default:
			return nil, errSpec("attribute '%s' must be an integer", key)
		}
	case kindBytes:
		switch t := v.(type) {
		case []byte:
			return t, nil
		case string:
			return []byte(t), nil
		default:
			return nil, errSpec("attribute '%s' must be byte-valued", key)
		}
	default:
		switch t := v.(type) {
		case string:
			return t, nil
		case []byte:
			return string(t), nil
		default:
			return nil, errSpec("attribute '%s' must be a string", key)
		}
	}
}
