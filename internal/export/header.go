package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"exe-predictor/internal/common"
	"exe-predictor/internal/featindex"
)

// ErrMissingSlot is returned when a feature used by the tree has no slot in the mapping.
var ErrMissingSlot = errors.New("feature has no slot in the feature index")

// Options controls header rendering.
type Options struct {
	Prefix      string             // symbol prefix, e.g. "zx7b"
	EmitWrapper bool               // also emit <prefix>_dt_predict_from_pvec
	Mapping     *featindex.Mapping // required when EmitWrapper is set
	Generator   string             // banner text; defaults to "exetrain"
}

// Header renders the C header for prog.
func Header(prog *Program, opts Options) (string, error) {
	if prog == nil {
		return "", errors.New("nil program")
	}
	if opts.Prefix == "" {
		return "", errors.New("symbol prefix is required")
	}
	if opts.EmitWrapper {
		if opts.Mapping == nil {
			return "", errors.New("wrapper export needs a feature index")
		}
		for _, f := range prog.Features {
			if _, ok := opts.Mapping.Slot(f.Ident); !ok {
				return "", fmt.Errorf("%w: %s (%s)", ErrMissingSlot, f.Name, featindex.Symbol(f.Ident))
			}
		}
	}
	generator := opts.Generator
	if generator == "" {
		generator = "exetrain"
	}

	structName := opts.Prefix + "_CodecFeat"
	coreName := opts.Prefix + "_dt_core"
	wrapName := opts.Prefix + "_dt_predict_from_pvec"

	var b strings.Builder
	fmt.Fprintf(&b, "// Auto-generated by %s. Do not edit.\n", generator)
	b.WriteString("#pragma once\n")
	b.WriteString("// Returns 0 for BCJ, 1 for KANZIEXE\n")
	if opts.EmitWrapper {
		b.WriteString("#include <string.h>\n")
	}
	fmt.Fprintf(&b, "#include \"%s\"\n", common.FeatureIndexHeader)
	b.WriteString("#ifdef __cplusplus\nextern \"C\" {\n#endif\n")

	b.WriteString("\n// Minimal feature struct (only used fields)\n")
	b.WriteString("typedef struct {\n")
	for _, f := range prog.Features {
		fmt.Fprintf(&b, "    double %s;\n", f.Ident)
	}
	if len(prog.Features) == 0 {
		// C forbids empty structs
		b.WriteString("    double unused_;\n")
	}
	fmt.Fprintf(&b, "} %s;\n\n", structName)

	fmt.Fprintf(&b, "static inline int %s(const %s *m) {\n", coreName, structName)
	if len(prog.Features) == 0 {
		b.WriteString("  (void)m;\n")
	}
	writeBody(&b, prog)
	b.WriteString("}\n\n")

	if opts.EmitWrapper {
		fmt.Fprintf(&b, "static inline int %s(const double *in) {\n", wrapName)
		fmt.Fprintf(&b, "    %s m; memset(&m, 0, sizeof(m));\n", structName)
		if len(prog.Features) == 0 {
			b.WriteString("    (void)in;\n")
		}
		for _, f := range prog.Features {
			fmt.Fprintf(&b, "    m.%s = in[%s];\n", f.Ident, featindex.Symbol(f.Ident))
		}
		fmt.Fprintf(&b, "    return %s(&m);\n", coreName)
		b.WriteString("}\n\n")
	}
	b.WriteString("#ifdef __cplusplus\n}\n#endif\n")
	return b.String(), nil
}

func writeBody(b *strings.Builder, prog *Program) {
	depth := 1
	indent := func() string { return strings.Repeat("  ", depth) }
	for _, in := range prog.Instrs {
		switch in.Op {
		case OpIf:
			f := prog.names[in.Feature]
			fmt.Fprintf(b, "%sif (m->%s <= "+thresholdFormat+") {\n", indent(), Sanitize(f), in.Threshold)
			depth++
		case OpElse:
			depth--
			fmt.Fprintf(b, "%s} else {\n", indent())
			depth++
		case OpEnd:
			depth--
			fmt.Fprintf(b, "%s}\n", indent())
		case OpReturn:
			fmt.Fprintf(b, "%sreturn %d;\n", indent(), in.Class)
		}
	}
}

// WriteHeader renders the header and writes it to path, creating parent directories and
// replacing any existing file.
func WriteHeader(path string, prog *Program, opts Options) error {
	text, err := Header(prog, opts)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create header directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("failed to write header %s: %w", path, err)
	}
	log.Info().Str("path", path).Int("features", len(prog.Features)).Int("instructions", len(prog.Instrs)).Msg("Decision tree header written")
	return nil
}

// DefaultHeaderPath returns <packerRoot>/src/packer/<prefix>_predict_dt.h.
func DefaultHeaderPath(packerRoot, prefix string) string {
	return filepath.Join(packerRoot, common.DefaultHeaderDir, prefix+common.HeaderFileSuffix)
}
