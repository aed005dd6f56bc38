package registry

// Asset is a single downloadable file attached to a Release.
type Asset struct {
	Name string
	URL  string
}

// Release is an immutable-by-tag snapshot announced by an upstream
// repository. Equality for change detection is by Tag; supersetness for
// asset change detection is by the set of Asset names.
type Release struct {
	Tag    string
	Assets []Asset
}

// assetNameSet returns the set of asset names in r. A nil Release yields an
// empty set.
func assetNameSet(r *Release) map[string]struct{} {
	set := make(map[string]struct{})
	if r == nil {
		return set
	}
	for _, a := range r.Assets {
		set[a.Name] = struct{}{}
	}
	return set
}

// isStrictSuperset reports whether b has at least one asset name not present
// in a. It does not check that b also keeps every name of a, so b need not be
// a superset of a in the set-theoretic sense.
func isStrictSuperset(a, b *Release) bool {
	aSet := assetNameSet(a)
	for name := range assetNameSet(b) {
		if _, ok := aSet[name]; !ok {
			return true
		}
	}
	return false
}
