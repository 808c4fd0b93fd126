package kinds

import "github.com/Mindburn-Labs/apimctl/pkg/artifact"

// VersionSet grounded on original_source/src/apy_ops/artifacts/version_sets.py:
// groups multiple api revisions under one versioning scheme. The source
// tree historically used "version sets" as the directory name before
// settling on "apiVersionSets"; both are checked on read.
func VersionSet() artifact.Kind {
	return dirOnlyKind{
		name:         "version_set",
		subdir:       "apiVersionSets",
		altSubdirs:   []string{"version sets"},
		infoFileName: "versionSetInformation.json",
		restPrefix:   "apiVersionSets",
	}
}
