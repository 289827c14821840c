package asset

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode"
)

// Directive keywords are matched case-insensitively on the first token of a
// line. Everything after the keyword is the argument list.
const materialLibKeyword = "mtllib"

var textureKeywords = map[string]bool{
	"map_kd":   true,
	"map_ka":   true,
	"map_d":    true,
	"map_bump": true,
	"bump":     true,
	"disp":     true,
	"decal":    true,
}

// splitDirective returns the keyword and the trimmed argument text of line.
// Lines without an argument are not directives.
func splitDirective(line string) (keyword, args string, ok bool) {
	trimmed := strings.TrimSpace(line)
	i := strings.IndexFunc(trimmed, unicode.IsSpace)
	if i <= 0 {
		return "", "", false
	}
	return trimmed[:i], strings.TrimSpace(trimmed[i:]), true
}

func isTextureKeyword(keyword string) bool {
	return textureKeywords[strings.ToLower(keyword)]
}

// hasExt reports whether token names a file with an extension. A leading dot
// alone (".hidden") or a trailing dot ("name.") does not count.
func hasExt(token string) bool {
	base := filepath.Base(token)
	ext := filepath.Ext(base)
	return ext != "" && ext != "." && ext != base
}

// textureToken picks the last argument token carrying a file extension, so
// option prefixes like "-o 1 1 1" or "-bm 0.5" are skipped.
func textureToken(args string) (string, bool) {
	tokens := strings.Fields(args)
	for i := len(tokens) - 1; i >= 0; i-- {
		if hasExt(tokens[i]) {
			return tokens[i], true
		}
	}
	return "", false
}

func unquote(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"'`)
}

// resolveRef resolves a reference found inside a model file against baseDir.
func resolveRef(baseDir, ref string) string {
	p := filepath.Join(baseDir, unquote(ref))
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// MaterialRef returns the first material library reference declared in the
// OBJ file at objPath, with quotes stripped. Unreadable files and files
// without an mtllib line report false.
func MaterialRef(objPath string) (string, bool) {
	data, err := os.ReadFile(objPath)
	if err != nil {
		return "", false
	}
	for _, line := range strings.Split(string(data), "\n") {
		keyword, args, ok := splitDirective(line)
		if !ok || !strings.EqualFold(keyword, materialLibKeyword) {
			continue
		}
		if ref := unquote(args); ref != "" {
			return ref, true
		}
	}
	return "", false
}

// MaterialPath resolves the material library of objPath relative to the
// OBJ's directory. It reports false when no reference is declared.
func MaterialPath(objPath string) (string, bool) {
	ref, ok := MaterialRef(objPath)
	if !ok {
		return "", false
	}
	return resolveRef(filepath.Dir(objPath), ref), true
}

// TextureRefs returns the distinct texture references of the MTL file at
// mtlPath, sorted. Unreadable files yield nil.
func TextureRefs(mtlPath string) []string {
	data, err := os.ReadFile(mtlPath)
	if err != nil {
		return nil
	}
	seen := make(map[string]bool)
	var refs []string
	for _, line := range strings.Split(string(data), "\n") {
		keyword, args, ok := splitDirective(line)
		if !ok || !isTextureKeyword(keyword) {
			continue
		}
		tex, ok := textureToken(args)
		if !ok || seen[tex] {
			continue
		}
		seen[tex] = true
		refs = append(refs, tex)
	}
	slices.Sort(refs)
	return refs
}

// rewriteLines applies fn to every line of text, keeping CRLF endings intact.
func rewriteLines(text string, fn func(line string) string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		body, cr := strings.CutSuffix(line, "\r")
		out := fn(body)
		if cr {
			out += "\r"
		}
		lines[i] = out
	}
	return strings.Join(lines, "\n")
}

// rewriteMaterialLib points every mtllib line of an OBJ at name.
func rewriteMaterialLib(text, name string) string {
	return rewriteLines(text, func(line string) string {
		keyword, _, ok := splitDirective(line)
		if !ok || !strings.EqualFold(keyword, materialLibKeyword) {
			return line
		}
		return materialLibKeyword + " " + name
	})
}

// rewriteTextureRefs strips directory components from the texture path of
// every texture directive in an MTL, keeping option tokens in place.
func rewriteTextureRefs(text string) string {
	return rewriteLines(text, func(line string) string {
		keyword, args, ok := splitDirective(line)
		if !ok || !isTextureKeyword(keyword) {
			return line
		}
		tokens := strings.Fields(args)
		last := len(tokens) - 1
		if !hasExt(tokens[last]) {
			return line
		}
		tokens[last] = filepath.Base(tokens[last])
		return keyword + " " + strings.Join(tokens, " ")
	})
}
