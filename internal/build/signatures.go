package build

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/sitegen/internal/content"
	"git.home.luguber.info/inful/sitegen/internal/output"
	"git.home.luguber.info/inful/sitegen/internal/render"
	"git.home.luguber.info/inful/sitegen/internal/state"
)

// collectSignatures builds the current signature map keyed by dependency
// graph input IDs: content files, template files, and static assets. Compared
// against the persisted map it yields the changed-input set driving
// incremental invalidation.
func (o *Orchestrator) collectSignatures(docs []*content.Document, assets []content.Asset) (map[string]state.Signature, error) {
	sigs := make(map[string]state.Signature)

	for _, doc := range docs {
		// The loader already hashed the raw file; a stat is enough here.
		info, err := os.Stat(doc.SourcePath)
		if err != nil {
			return nil, err
		}
		sigs[doc.ID()] = state.Signature{
			Path:  doc.SourcePath,
			Hash:  doc.SourceHash,
			Size:  info.Size(),
			MTime: info.ModTime().Unix(),
		}
	}

	err := filepath.WalkDir(o.cfg.TemplateDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".html") {
			return nil
		}
		rel, err := filepath.Rel(o.cfg.TemplateDir, path)
		if err != nil {
			return err
		}
		sig, err := fileSignature(path)
		if err != nil {
			return err
		}
		name := strings.TrimSuffix(filepath.ToSlash(rel), ".html")
		id := render.LayoutID(name)
		if after, ok := strings.CutPrefix(name, "partials/"); ok {
			id = render.PartialID(after)
		}
		sigs[id] = sig
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, asset := range assets {
		sig, err := fileSignature(asset.SourcePath)
		if err != nil {
			return nil, err
		}
		sigs[assetID(asset)] = sig
	}

	return sigs, nil
}

// changedInputs compares current signatures against the previous build's.
// Added and removed inputs both count as changes.
func changedInputs(prev, cur map[string]state.Signature) []string {
	var changed []string
	for id, sig := range cur {
		p, ok := prev[id]
		if !ok || p.Hash != sig.Hash {
			changed = append(changed, id)
		}
	}
	for id := range prev {
		if _, ok := cur[id]; !ok {
			changed = append(changed, id)
		}
	}
	return changed
}

func fileSignature(path string) (state.Signature, error) {
	info, err := os.Stat(path)
	if err != nil {
		return state.Signature{}, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return state.Signature{}, err
	}
	return state.Signature{
		Path:  path,
		Hash:  output.HashBytes(raw),
		Size:  info.Size(),
		MTime: info.ModTime().Unix(),
	}, nil
}

func assetID(a content.Asset) string {
	return "asset:" + filepath.ToSlash(a.RelPath)
}

// copyArtifactID is the graph identity of an asset's direct-copy output.
func copyArtifactID(a content.Asset) string {
	return "copy:" + filepath.ToSlash(a.RelPath)
}
