package analysis

import (
	"cmp"
	"slices"

	"github.com/vbonduro/sintaxia/internal/classes"
	"github.com/vbonduro/sintaxia/internal/domain"
)

// Select picks the class to show in the 3D viewer. Only whitelisted classes
// qualify. Among them, in descending confidence order, the first class for
// which hasAsset reports a curated model wins; otherwise the most confident
// whitelisted class is returned. The result is a canonical class name.
func Select(dets []domain.Detection, hasAsset func(class string) bool) (string, bool) {
	if len(dets) == 0 {
		return "", false
	}

	ordered := slices.Clone(dets)
	slices.SortStableFunc(ordered, func(a, b domain.Detection) int {
		return cmp.Compare(b.Confidence, a.Confidence)
	})

	var relevant []string
	for _, d := range ordered {
		if classes.IsRelevant(d.ClassName) {
			relevant = append(relevant, classes.Normalize(d.ClassName))
		}
	}
	if len(relevant) == 0 {
		return "", false
	}

	if hasAsset != nil {
		checked := make(map[string]bool)
		for _, class := range relevant {
			if checked[class] {
				continue
			}
			checked[class] = true
			if hasAsset(class) {
				return class, true
			}
		}
	}
	return relevant[0], true
}
