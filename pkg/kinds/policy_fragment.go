package kinds

import (
	"path/filepath"

	"github.com/Mindburn-Labs/apimctl/pkg/artifact"
)

// policyFragmentKind grounded on
// original_source/src/apy_ops/artifacts/policy_fragments.py: a reusable
// policy XML snippet other policies can <include-fragment> by id. Reads
// use the shared dir-or-flat-file logic; writes always produce the
// directory form, externalizing the "policy" property into a sibling
// policy.xml with a $ref-policy backpointer so large XML blobs don't bloat
// the information file.
type policyFragmentKind struct {
	dirOrFileKind
}

func PolicyFragment() artifact.Kind {
	return policyFragmentKind{dirOrFileKind{
		scalarFileKind: scalarFileKind{name: "policy_fragment", subdir: "policyFragments", restPrefix: "policyFragments"},
		infoFileName:   "policyFragmentInformation.json",
	}}
}

func (k policyFragmentKind) WriteLocal(sourceDir string, a artifact.Artifact) error {
	base := filepath.Join(sourceDir, k.subdir)
	dir := filepath.Join(base, a.ID)
	if err := ensureDir(dir); err != nil {
		return err
	}
	props := cloneProps(a.Properties)
	policy, hasPolicy := props["policy"].(string)
	delete(props, "policy")
	props["id"] = k.ResourcePath(a.ID)
	if hasPolicy {
		if err := writeTextFile(filepath.Join(dir, "policy.xml"), policy); err != nil {
			return err
		}
		props["$ref-policy"] = "policy.xml"
	}
	return writeJSONProps(filepath.Join(dir, "policyFragmentInformation.json"), props)
}
