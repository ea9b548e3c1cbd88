package cafs

import (
	"context"
	"strings"
	"time"

	"github.com/oneconcern/swarmtrie/pkg/mantaray"
	"github.com/oneconcern/swarmtrie/pkg/postage"
	"github.com/oneconcern/swarmtrie/pkg/swarm"
	"go.uber.org/zap"
)

// ManifestEntry describes a path of a manifest
type ManifestEntry struct {
	Path     string            `json:"path" yaml:"path"`
	Ref      swarm.Reference   `json:"reference" yaml:"reference"`
	Metadata map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

func (d *defaultFs) loadSaver() mantaray.LoadSaver {
	return mantaray.NewLoadSaver(d.store, d.encrypt, d.level,
		mantaray.WithPipelineOptions(d.pipelineOptions()...),
		mantaray.WithJoinerOptions(d.joinerOptions()...),
	)
}

func (d *defaultFs) saveOptions() []mantaray.SaveOption {
	stamps, ok := d.stamper.(postage.StampStore)
	if d.compactLevel == 0 || !ok || d.encrypt {
		return nil
	}
	return []mantaray.SaveOption{mantaray.WithCompaction(d.compactLevel, stamps)}
}

// editable loads a manifest for edition, or starts a new one
func (d *defaultFs) editable(ctx context.Context, manifest swarm.Reference, ls mantaray.LoadSaver) (*mantaray.Node, error) {
	if len(manifest) == 0 {
		return mantaray.New(), nil
	}
	if err := manifest.Validate(); err != nil {
		return nil, err
	}
	return mantaray.NewNodeRef(manifest).Mutable(ctx, ls)
}

func (d *defaultFs) saveManifest(ctx context.Context, root *mantaray.Node, ls mantaray.LoadSaver) (swarm.Reference, error) {
	if err := root.Save(ctx, ls, d.saveOptions()...); err != nil {
		return nil, err
	}
	ref := swarm.Reference(root.Reference())
	d.l.Debug("cafs manifest saved", zap.Stringer("manifest", ref))
	return ref, nil
}

// ManifestAdd adds entries to a manifest, and returns the reference of the updated manifest.
//
// A nil manifest reference starts a new manifest.
func (d *defaultFs) ManifestAdd(ctx context.Context, manifest swarm.Reference, entries ...ManifestEntry) (swarm.Reference, error) {
	var err error

	d.l.Debug("Start cafs ManifestAdd")
	defer func(t0 time.Time) {
		if d.MetricsEnabled() {
			d.m.Usage.UsedAll(t0, "ManifestAdd")(err)
		}
		d.l.Debug("End cafs ManifestAdd")
	}(time.Now())

	ls := d.loadSaver()
	root, err := d.editable(ctx, manifest, ls)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if err = e.Ref.Validate(); err != nil {
			return nil, err
		}
		if err = root.Add(ctx, []byte(e.Path), e.Ref, e.Metadata, ls); err != nil {
			return nil, err
		}
	}

	ref, err := d.saveManifest(ctx, root, ls)
	return ref, err
}

// ManifestRemove removes paths from a manifest, and returns the reference of the updated manifest
func (d *defaultFs) ManifestRemove(ctx context.Context, manifest swarm.Reference, paths ...string) (swarm.Reference, error) {
	var err error

	d.l.Debug("Start cafs ManifestRemove")
	defer func(t0 time.Time) {
		if d.MetricsEnabled() {
			d.m.Usage.UsedAll(t0, "ManifestRemove")(err)
		}
		d.l.Debug("End cafs ManifestRemove")
	}(time.Now())

	ls := d.loadSaver()
	root, err := d.editable(ctx, manifest, ls)
	if err != nil {
		return nil, err
	}
	for _, p := range paths {
		if err = root.Remove(ctx, []byte(p), ls); err != nil {
			return nil, err
		}
	}

	ref, err := d.saveManifest(ctx, root, ls)
	return ref, err
}

// ManifestLookup resolves a path in a manifest
func (d *defaultFs) ManifestLookup(ctx context.Context, manifest swarm.Reference, path string) (ManifestEntry, error) {
	var err error

	d.l.Debug("Start cafs ManifestLookup")
	defer func(t0 time.Time) {
		if d.MetricsEnabled() {
			d.m.Usage.UsedAll(t0, "ManifestLookup")(err)
		}
		d.l.Debug("End cafs ManifestLookup")
	}(time.Now())

	if err = manifest.Validate(); err != nil {
		return ManifestEntry{}, err
	}
	ls := d.loadSaver()
	node, err := mantaray.NewNodeRef(manifest).LookupNode(ctx, []byte(path), ls)
	if err != nil {
		return ManifestEntry{}, err
	}
	if !node.IsValueType() {
		err = mantaray.ErrNotFound.WrapMessage("%q", path)
		return ManifestEntry{}, err
	}
	return ManifestEntry{
		Path:     path,
		Ref:      swarm.Reference(node.Entry()),
		Metadata: node.Metadata(),
	}, nil
}

// ManifestList lists the entries of a manifest under some path prefix, sorted by path
func (d *defaultFs) ManifestList(ctx context.Context, manifest swarm.Reference, prefix string) ([]ManifestEntry, error) {
	var err error

	d.l.Debug("Start cafs ManifestList")
	defer func(t0 time.Time) {
		if d.MetricsEnabled() {
			d.m.Usage.UsedAll(t0, "ManifestList")(err)
		}
		d.l.Debug("End cafs ManifestList")
	}(time.Now())

	if err = manifest.Validate(); err != nil {
		return nil, err
	}
	ls := d.loadSaver()
	var entries []ManifestEntry
	err = mantaray.NewNodeRef(manifest).Walk(ctx, nil, ls, func(path []byte, node *mantaray.Node, werr error) error {
		if werr != nil {
			return werr
		}
		if node.IsValueType() && strings.HasPrefix(string(path), prefix) {
			entries = append(entries, ManifestEntry{
				Path:     string(path),
				Ref:      swarm.Reference(node.Entry()),
				Metadata: node.Metadata(),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}
