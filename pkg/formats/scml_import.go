package formats

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/Faultbox/chophuman/pkg/encoding"
	"github.com/Faultbox/chophuman/pkg/math"
	"github.com/Faultbox/chophuman/pkg/rig"
)

// Document is a parsed SCML file.
type Document struct {
	SCMLVersion      string
	Generator        string
	GeneratorVersion string
	Manifest         *Manifest
	Entities         []Entity
}

// Entity is one animation set of a document together with the image each
// skin references, keyed by skin id.
type Entity struct {
	ID        int
	Set       *rig.AnimationSet
	SkinFiles map[int]FileEntry
}

// Entity returns the entity with the given name, or the first one when name is empty.
func (d *Document) Entity(name string) (*Entity, error) {
	for i := range d.Entities {
		if name == "" || d.Entities[i].Set.Name == name {
			return &d.Entities[i], nil
		}
	}
	if name == "" {
		return nil, fmt.Errorf("%w: document has no entities", ErrNoEntity)
	}
	return nil, fmt.Errorf("%w: %q", ErrNoEntity, name)
}

// ParseSCML parses an SCML document. File paths in the manifest are resolved
// against baseDir. Documents declaring a legacy encoding such as EUC-KR are
// decoded to UTF-8.
func ParseSCML(data []byte, baseDir string, opts ...Option) (*Document, error) {
	o := newOptions(opts)

	var wd wireDocument
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = encoding.NewReader
	if err := dec.Decode(&wd); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedSCML, err)
	}

	doc := &Document{
		SCMLVersion:      wd.SCMLVersion,
		Generator:        wd.Generator,
		GeneratorVersion: wd.GeneratorVersion,
	}

	manifest, err := parseManifest(wd.Folders, baseDir)
	if err != nil {
		return nil, err
	}
	doc.Manifest = manifest
	o.log.Debug("parsed SCML manifest", zap.Int("folders", len(manifest.Folders)), zap.Int("files", len(manifest.Files())))

	for i := range wd.Entities {
		entity, err := parseEntity(&wd.Entities[i], manifest, o)
		if err != nil {
			return nil, fmt.Errorf("parsing entity %q: %w", wd.Entities[i].Name, err)
		}
		doc.Entities = append(doc.Entities, entity)
	}

	// Record which bone each referenced image belongs to.
	for _, entity := range doc.Entities {
		for _, f := range entity.SkinFiles {
			manifest.setBone(f.FolderID, f.ID, f.Bone)
		}
	}
	return doc, nil
}

// ParseSCMLFile parses an SCML file from disk.
func ParseSCMLFile(path string, opts ...Option) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading SCML file: %w", rig.ErrIO, err)
	}
	return ParseSCML(data, filepath.Dir(path), opts...)
}

func (m *Manifest) setBone(folderID, fileID int, bone string) {
	for i := range m.Folders {
		if m.Folders[i].ID != folderID {
			continue
		}
		for j := range m.Folders[i].Files {
			if m.Folders[i].Files[j].ID == fileID {
				m.Folders[i].Files[j].Bone = bone
			}
		}
	}
}

func parseManifest(folders []wireFolder, baseDir string) (*Manifest, error) {
	m := &Manifest{}
	seen := make(map[[2]int]bool)
	for _, wf := range folders {
		r := attrReader{elem: "folder"}
		folder := Folder{ID: r.intAttr("id", wf.ID), Name: wf.Name}
		for _, file := range wf.Files {
			fr := attrReader{elem: "file"}
			f := FileEntry{
				ID:       fr.intAttr("id", file.ID),
				FolderID: folder.ID,
				Name:     file.Name,
				Path:     filepath.Join(baseDir, filepath.FromSlash(file.Name)),
				Width:    fr.intAttrOr("width", file.Width, 0),
				Height:   fr.intAttrOr("height", file.Height, 0),
				Offset: math.Vec2{
					X: fr.floatAttrOr("offset_x", file.OffsetX, 0),
					Y: fr.floatAttrOr("offset_y", file.OffsetY, 0),
				},
			}
			if fr.err != nil {
				return nil, fr.err
			}
			key := [2]int{folder.ID, f.ID}
			if seen[key] {
				return nil, fmt.Errorf("%w: duplicate file %d in folder %d", ErrMalformedSCML, f.ID, folder.ID)
			}
			seen[key] = true
			f.Bone, f.Normal = parseAssetName(f.Name)
			folder.Files = append(folder.Files, f)
		}
		if r.err != nil {
			return nil, r.err
		}
		m.Folders = append(m.Folders, folder)
	}
	return m, nil
}

func parseEntity(we *wireEntity, manifest *Manifest, o *options) (Entity, error) {
	r := attrReader{elem: "entity"}
	entity := Entity{
		ID:        r.intAttrOr("id", we.ID, 0),
		Set:       rig.NewAnimationSet(we.Name),
		SkinFiles: make(map[int]FileEntry),
	}
	if r.err != nil {
		return Entity{}, r.err
	}
	entity.Set.ID = entity.ID

	for i := range we.Animations {
		wa := &we.Animations[i]
		a, err := parseAnimation(wa, manifest, entity.SkinFiles)
		if err != nil {
			return Entity{}, fmt.Errorf("parsing animation %q: %w", wa.Name, err)
		}
		if err := entity.Set.AddAnimation(a); err != nil {
			return Entity{}, err
		}
		o.log.Debug("parsed animation",
			zap.String("entity", we.Name),
			zap.String("name", a.Name),
			zap.Int("keyframes", len(a.Keyframes)))
	}
	return entity, nil
}

// timelineTable indexes an animation's timeline keys by timeline and key id.
type timelineTable struct {
	names map[int]string
	keys  map[int]map[int]*wireTimelineKey
}

func indexTimelines(timelines []wireTimeline) (*timelineTable, error) {
	tt := &timelineTable{
		names: make(map[int]string, len(timelines)),
		keys:  make(map[int]map[int]*wireTimelineKey, len(timelines)),
	}
	for i := range timelines {
		tl := &timelines[i]
		r := attrReader{elem: "timeline"}
		id := r.intAttr("id", tl.ID)
		if r.err != nil {
			return nil, r.err
		}
		if _, ok := tt.keys[id]; ok {
			return nil, fmt.Errorf("%w: duplicate timeline %d", ErrMalformedSCML, id)
		}
		keys := make(map[int]*wireTimelineKey, len(tl.Keys))
		for j := range tl.Keys {
			kr := attrReader{elem: "timeline key"}
			keyID := kr.intAttr("id", tl.Keys[j].ID)
			if kr.err != nil {
				return nil, fmt.Errorf("timeline %d: %w", id, kr.err)
			}
			keys[keyID] = &tl.Keys[j]
		}
		tt.names[id] = tl.Name
		tt.keys[id] = keys
	}
	return tt, nil
}

// lookup resolves the timeline key a mainline reference points at.
func (tt *timelineTable) lookup(timelineID, keyID int) (*wireTimelineKey, string, error) {
	keys, ok := tt.keys[timelineID]
	if !ok {
		return nil, "", fmt.Errorf("%w: timeline %d", rig.ErrMissingReference, timelineID)
	}
	key, ok := keys[keyID]
	if !ok {
		return nil, "", fmt.Errorf("%w: timeline %d key %d", rig.ErrMissingReference, timelineID, keyID)
	}
	return key, tt.names[timelineID], nil
}

type parsedRef struct {
	id, parent, timeline, key, zIndex int
}

func parseRefs(refs []wireRef, elem string) ([]parsedRef, error) {
	out := make([]parsedRef, 0, len(refs))
	for _, ref := range refs {
		r := attrReader{elem: elem}
		out = append(out, parsedRef{
			id:       r.intAttr("id", ref.ID),
			parent:   r.intAttrOr("parent", ref.Parent, rig.NoParent),
			timeline: r.intAttr("timeline", ref.Timeline),
			key:      r.intAttr("key", ref.Key),
			zIndex:   r.intAttrOr("z_index", ref.ZIndex, len(out)),
		})
		if r.err != nil {
			return nil, r.err
		}
	}
	return out, nil
}

func parseAnimation(wa *wireAnimation, manifest *Manifest, skinFiles map[int]FileEntry) (*rig.Animation, error) {
	r := attrReader{elem: "animation"}
	a := rig.NewAnimation(wa.Name, r.intAttr("length", wa.Length))
	a.ID = r.intAttrOr("id", wa.ID, -1)
	a.Looping = r.boolAttrOr("looping", wa.Looping, true)
	if r.err != nil {
		return nil, r.err
	}
	if len(wa.Mainline.Keys) == 0 {
		return nil, fmt.Errorf("%w: no mainline keys", ErrMalformedSCML)
	}

	timelines, err := indexTimelines(wa.Timelines)
	if err != nil {
		return nil, err
	}

	for i := range wa.Mainline.Keys {
		mk := &wa.Mainline.Keys[i]
		kr := attrReader{elem: "mainline key"}
		time := kr.intAttrOr("time", mk.Time, 0)
		if kr.err != nil {
			return nil, kr.err
		}

		state, files, err := parseMainlineKey(mk, timelines, manifest)
		if err != nil {
			return nil, fmt.Errorf("mainline key %s: %w", mk.ID, err)
		}
		if err := a.AddKeyframe(rig.NewKeyframe(time, state)); err != nil {
			return nil, fmt.Errorf("mainline key %s: %w", mk.ID, err)
		}
		for skinID, f := range files {
			skinFiles[skinID] = f
		}
	}
	if start := a.Keyframes[0].Time; start != 0 {
		return nil, fmt.Errorf("%w: first mainline key at %d, want 0", ErrMalformedSCML, start)
	}
	return a, nil
}

// parseMainlineKey builds the pose of one mainline key. Bone ids are the
// bone_ref ids; parent references are bone_ref ids of the same key.
// Bone slots are not remapped through their timelines, so a file whose
// bone_ref ids change between keys while the timelines stay the same is
// rejected with ErrShapeMismatch when the keyframes are compared.
func parseMainlineKey(mk *wireMainlineKey, timelines *timelineTable, manifest *Manifest) (*rig.EntityState, map[int]FileEntry, error) {
	boneRefs, err := parseRefs(mk.BoneRefs, "bone_ref")
	if err != nil {
		return nil, nil, err
	}
	objectRefs, err := parseRefs(mk.ObjectRefs, "object_ref")
	if err != nil {
		return nil, nil, err
	}
	sort.SliceStable(boneRefs, func(i, j int) bool { return boneRefs[i].id < boneRefs[j].id })
	sort.SliceStable(objectRefs, func(i, j int) bool { return objectRefs[i].zIndex < objectRefs[j].zIndex })

	state := rig.NewEntityState()
	for _, ref := range boneRefs {
		key, name, err := timelines.lookup(ref.timeline, ref.key)
		if err != nil {
			return nil, nil, fmt.Errorf("bone_ref %d: %w", ref.id, err)
		}
		if key.Bone == nil {
			return nil, nil, fmt.Errorf("%w: bone_ref %d points at timeline %d which holds no bone", rig.ErrShapeMismatch, ref.id, ref.timeline)
		}

		br := attrReader{elem: "bone"}
		bone := rig.NewBone(name)
		bone.ID = ref.id
		bone.Parent = ref.parent
		bone.Transform = rig.Transform{
			X:      br.floatAttr("x", key.Bone.X),
			Y:      -br.floatAttr("y", key.Bone.Y),
			Angle:  rig.NormalizeAngle(-br.floatAttrOr("angle", key.Bone.Angle, 0)),
			ScaleX: br.floatAttrOr("scale_x", key.Bone.ScaleX, 1),
			ScaleY: br.floatAttrOr("scale_y", key.Bone.ScaleY, 1),
			Spin:   -br.intAttrOr("spin", key.Spin, 1),
		}
		if br.err != nil {
			return nil, nil, fmt.Errorf("timeline %d: %w", ref.timeline, br.err)
		}
		if bone.Parent != rig.NoParent && (bone.Parent < 0 || bone.Parent >= len(boneRefs)) {
			return nil, nil, fmt.Errorf("%w: bone_ref %d parent %d", rig.ErrMissingReference, ref.id, bone.Parent)
		}
		if _, err := state.AddBone(bone); err != nil {
			return nil, nil, err
		}
	}

	files := make(map[int]FileEntry, len(objectRefs))
	for _, ref := range objectRefs {
		key, name, err := timelines.lookup(ref.timeline, ref.key)
		if err != nil {
			return nil, nil, fmt.Errorf("object_ref %d: %w", ref.id, err)
		}
		obj := key.Object
		if obj == nil {
			return nil, nil, fmt.Errorf("%w: object_ref %d points at timeline %d which holds no object", rig.ErrShapeMismatch, ref.id, ref.timeline)
		}
		if ref.parent != rig.NoParent && state.Bone(ref.parent) == nil {
			return nil, nil, fmt.Errorf("%w: object_ref %d parent bone %d", rig.ErrMissingReference, ref.id, ref.parent)
		}

		or := attrReader{elem: "object"}
		folderID := or.intAttr("folder", obj.Folder)
		fileID := or.intAttr("file", obj.File)
		pos := math.Vec2{X: or.floatAttr("x", obj.X), Y: -or.floatAttr("y", obj.Y)}
		angle := rig.NormalizeAngle(-or.floatAttrOr("angle", obj.Angle, 0))

		skin := rig.NewSkin(name, ref.parent)
		skin.ZIndex = ref.zIndex
		skin.PivotX = or.floatAttrOr("pivot_x", obj.PivotX, 0)
		skin.PivotY = 1 - or.floatAttrOr("pivot_y", obj.PivotY, 1)
		skin.Opacity = or.floatAttrOr("a", obj.Alpha, 1)
		spin := -or.intAttrOr("spin", key.Spin, 1)
		scaleX := or.floatAttrOr("scale_x", obj.ScaleX, 1)
		scaleY := or.floatAttrOr("scale_y", obj.ScaleY, 1)
		if or.err != nil {
			return nil, nil, fmt.Errorf("timeline %d: %w", ref.timeline, or.err)
		}

		file, ok := manifest.File(folderID, fileID)
		if !ok {
			return nil, nil, fmt.Errorf("%w: folder %d file %d", rig.ErrMissingReference, folderID, fileID)
		}
		pos = pos.Sub(file.Offset.Rotate(angle))
		skin.Transform = rig.Transform{
			X:      pos.X,
			Y:      pos.Y,
			Angle:  angle,
			ScaleX: scaleX,
			ScaleY: scaleY,
			Spin:   spin,
		}

		id, err := state.AddSkin(skin)
		if err != nil {
			return nil, nil, err
		}
		if bone := state.Bone(ref.parent); bone != nil {
			file.Bone = bone.Name
		}
		files[id] = file
	}
	return state, files, nil
}
