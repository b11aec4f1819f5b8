// Package assembly flattens a document's include graph into one
// self-contained text, honoring a selected flavor's conditional blocks.
//
// Include directives (include::target[]) are expanded recursively; the
// expansion is wrapped in begin/end marker comments carrying the original
// directive text so the flattened output stays traceable. Conditional
// directives (ifdef/ifndef/endif) are tracked on an explicit boolean stack.
// By default inactive content passes through unchanged, matching the
// upstream template toolchain which leaves conditional evaluation to the
// downstream renderer; StripInactive opts into strict flattening.
package assembly

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// DefaultMaxDepth bounds include recursion. A branch exceeding it degrades
// to an inline error marker instead of failing the whole resolution.
const DefaultMaxDepth = 10

// ShowHelpAttribute is defined for the help-annotated flavor; template
// sources gate help blocks on it with ifdef::show-help[].
const ShowHelpAttribute = "show-help"

// ExtendedFlavor is the flavor for which ShowHelpAttribute is defined.
const ExtendedFlavor = "withHelp"

var (
	includeRe = regexp.MustCompile(`^include::([^\[]+)\[[^\]]*\]\s*$`)
	ifdefRe   = regexp.MustCompile(`^ifdef::([^\[\]]+)\[\]\s*$`)
	ifndefRe  = regexp.MustCompile(`^ifndef::([^\[\]]+)\[\]\s*$`)
	endifRe   = regexp.MustCompile(`^endif::[^\[\]]*\[\]\s*$`)
)

// AttributesForFlavor maps a flavor name to its defined-attribute set.
// Only one flavor-conditional attribute exists today, but the conditional
// stack generalizes to arbitrary sets.
func AttributesForFlavor(flavor string) map[string]bool {
	attrs := map[string]bool{}
	if flavor == ExtendedFlavor {
		attrs[ShowHelpAttribute] = true
	}
	return attrs
}

// Options tunes resolution behavior.
type Options struct {
	// MaxDepth bounds include nesting; 0 means DefaultMaxDepth.
	MaxDepth int
	// StripInactive omits content inside inactive conditional blocks.
	// Directive lines are preserved either way.
	StripInactive bool
}

// Resolver flattens one document tree for one flavor. A Resolver is cheap
// and single-use state free; Resolve may be called repeatedly.
type Resolver struct {
	baseDir string
	attrs   map[string]bool
	opts    Options
}

// NewResolver creates a resolver rooted at baseDir for the given flavor.
func NewResolver(baseDir, flavor string, opts Options) *Resolver {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	// Included files are tracked by absolute path; keep the base directory
	// absolute too so the relative-to-base check compares like with like.
	if abs, err := filepath.Abs(baseDir); err == nil {
		baseDir = abs
	}
	return &Resolver{
		baseDir: filepath.Clean(baseDir),
		attrs:   AttributesForFlavor(flavor),
		opts:    opts,
	}
}

// resolution carries the mutable traversal state for one Resolve call.
// Document nodes are ephemeral; nothing is cached across calls.
type resolution struct {
	out strings.Builder
	// condStack holds the activity of each open conditional block,
	// outermost first. A block is active only if all enclosing blocks are.
	condStack []bool
	// open tracks the include chain currently being expanded, for cycle
	// detection. The depth guard alone would permit exponential
	// re-expansion of diamond-shaped graphs.
	open map[string]bool
}

func (st *resolution) active() bool {
	for _, a := range st.condStack {
		if !a {
			return false
		}
	}
	return true
}

// Resolve flattens the root document and returns the spliced text.
func (r *Resolver) Resolve(rootPath string) (string, error) {
	st := &resolution{open: make(map[string]bool)}
	if err := r.resolveFile(rootPath, 0, st); err != nil {
		return "", err
	}
	return st.out.String(), nil
}

// ResolveToFile flattens the root document into a single output file.
func (r *Resolver) ResolveToFile(rootPath, outPath string) error {
	text, err := r.Resolve(rootPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o750); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	return os.WriteFile(outPath, []byte(text), 0o644)
}

// resolveFile splices one file into the output. Only the root read can fail
// hard; broken includes degrade to inline markers so a single bad include
// never aborts the run.
func (r *Resolver) resolveFile(path string, depth int, st *resolution) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return fmt.Errorf("read document %s: %w", path, err)
	}

	st.open[abs] = true
	defer delete(st.open, abs)

	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	for _, line := range lines {
		r.resolveLine(line, abs, depth, st)
	}
	return nil
}

func (r *Resolver) resolveLine(line, currentPath string, depth int, st *resolution) {
	trimmed := strings.TrimSpace(line)

	if m := ifdefRe.FindStringSubmatch(trimmed); m != nil {
		st.condStack = append(st.condStack, r.attrs[m[1]])
		st.out.WriteString(line + "\n")
		return
	}
	if m := ifndefRe.FindStringSubmatch(trimmed); m != nil {
		st.condStack = append(st.condStack, !r.attrs[m[1]])
		st.out.WriteString(line + "\n")
		return
	}
	if endifRe.MatchString(trimmed) {
		if len(st.condStack) > 0 {
			st.condStack = st.condStack[:len(st.condStack)-1]
		}
		st.out.WriteString(line + "\n")
		return
	}

	if m := includeRe.FindStringSubmatch(trimmed); m != nil {
		if r.opts.StripInactive && !st.active() {
			return
		}
		r.expandInclude(trimmed, m[1], currentPath, depth, st)
		return
	}

	if r.opts.StripInactive && !st.active() {
		return
	}
	st.out.WriteString(line + "\n")
}

// expandInclude splices the include target in place of the directive line,
// wrapped in begin/end markers carrying the original directive text.
func (r *Resolver) expandInclude(directive, target, currentPath string, depth int, st *resolution) {
	if depth+1 > r.opts.MaxDepth {
		fmt.Fprintf(&st.out, "// ERROR: maximum include depth (%d) exceeded: %s\n", r.opts.MaxDepth, directive)
		return
	}

	resolved := r.resolveTarget(target, currentPath)
	abs, err := filepath.Abs(resolved)
	if err != nil {
		abs = filepath.Clean(resolved)
	}

	if st.open[abs] {
		fmt.Fprintf(&st.out, "// ERROR: include cycle detected: %s\n", directive)
		return
	}
	if _, err := os.Stat(abs); err != nil {
		fmt.Fprintf(&st.out, "// WARNING: include target not found: %s (resolved: %s)\n", directive, resolved)
		return
	}

	fmt.Fprintf(&st.out, "// BEGIN %s\n", directive)
	if err := r.resolveFile(abs, depth+1, st); err != nil {
		fmt.Fprintf(&st.out, "// WARNING: include target unreadable: %s: %v\n", directive, err)
	}
	fmt.Fprintf(&st.out, "// END %s\n", directive)
}

// resolveTarget resolves an include target relative to the including file's
// directory when that file is not itself at the base directory, else
// relative to the base directory.
func (r *Resolver) resolveTarget(target, currentPath string) string {
	if filepath.IsAbs(target) {
		return filepath.Clean(target)
	}
	dir := filepath.Dir(currentPath)
	if filepath.Clean(dir) != r.baseDir {
		return filepath.Join(dir, target)
	}
	return filepath.Join(r.baseDir, target)
}
