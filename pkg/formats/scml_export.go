package formats

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/chophuman/pkg/encoding"
	"github.com/Faultbox/chophuman/pkg/math"
	"github.com/Faultbox/chophuman/pkg/rig"
)

// ImageRegion is an image already cropped to its opaque area.
type ImageRegion struct {
	Image  image.Image
	Width  int       // zero means the image bounds width
	Height int       // zero means the image bounds height
	Offset math.Vec2 // position of the crop inside the original image
}

func (r *ImageRegion) size() (int, int) {
	w, h := r.Width, r.Height
	if r.Image != nil {
		b := r.Image.Bounds()
		if w == 0 {
			w = b.Dx()
		}
		if h == 0 {
			h = b.Dy()
		}
	}
	return w, h
}

// SkinImages holds the prepared images of one bone's skin.
type SkinImages struct {
	Diffuse *ImageRegion
	Normal  *ImageRegion
}

// PrepareManifest assigns file ids to the images, keyed by bone name.
//
// Bones are visited in name order; a bone's normal map gets its id before its
// diffuse map. Files are named "<project>/<bone>_n.png" and "<project>/<bone>_d.png".
func PrepareManifest(images map[string]SkinImages, project string) *Manifest {
	bones := make([]string, 0, len(images))
	for bone := range images {
		bones = append(bones, bone)
	}
	sort.Strings(bones)

	folder := Folder{ID: 0, Name: project}
	add := func(bone string, region *ImageRegion, normal bool) {
		if region == nil || region.Image == nil {
			return
		}
		w, h := region.size()
		folder.Files = append(folder.Files, FileEntry{
			ID:     len(folder.Files),
			Name:   path.Join(project, assetName(bone, normal)+".png"),
			Width:  w,
			Height: h,
			Offset: region.Offset,
			Bone:   bone,
			Normal: normal,
		})
	}
	for _, bone := range bones {
		imgs := images[bone]
		add(bone, imgs.Normal, true)
		add(bone, imgs.Diffuse, false)
	}
	return &Manifest{Folders: []Folder{folder}}
}

// WriteSCML encodes set as an SCML document referencing the images in manifest.
func WriteSCML(w io.Writer, set *rig.AnimationSet, manifest *Manifest, opts ...Option) error {
	o := newOptions(opts)
	doc, err := buildDocument(set, manifest, o)
	if err != nil {
		return err
	}
	return writeDocument(w, doc, o.encoding)
}

// WriteSCMLFile atomically replaces outputPath with the encoded set. The
// images in manifest are expected to exist already, relative to outputPath.
func WriteSCMLFile(set *rig.AnimationSet, manifest *Manifest, outputPath string, opts ...Option) error {
	o := newOptions(opts)
	doc, err := buildDocument(set, manifest, o)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := writeDocument(&buf, doc, o.encoding); err != nil {
		return err
	}
	if err := writeFileAtomic(outputPath, buf.Bytes()); err != nil {
		return err
	}
	o.log.Info("wrote SCML", zap.String("path", outputPath), zap.Int("animations", len(set.Animations)))
	return nil
}

// ExportSCMLFile writes set to outputPath and its images, as PNG, to a
// directory named after the project (the output file name without extension)
// next to it. The document is fully built before anything is written.
func ExportSCMLFile(set *rig.AnimationSet, images map[string]SkinImages, outputPath string, opts ...Option) error {
	o := newOptions(opts)
	dir := filepath.Dir(outputPath)
	base := filepath.Base(outputPath)
	project := strings.TrimSuffix(base, filepath.Ext(base))

	manifest := PrepareManifest(images, project)
	doc, err := buildDocument(set, manifest, o)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := writeDocument(&buf, doc, o.encoding); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Join(dir, project), 0755); err != nil {
		return fmt.Errorf("%w: creating asset directory: %w", rig.ErrIO, err)
	}
	for _, f := range manifest.Files() {
		region := images[f.Bone].Diffuse
		if f.Normal {
			region = images[f.Bone].Normal
		}
		if err := writePNG(filepath.Join(dir, filepath.FromSlash(f.Name)), region.Image); err != nil {
			return err
		}
		o.log.Debug("wrote asset", zap.String("file", f.Name), zap.Int("width", f.Width), zap.Int("height", f.Height))
	}

	if err := writeFileAtomic(outputPath, buf.Bytes()); err != nil {
		return err
	}
	o.log.Info("exported SCML",
		zap.String("path", outputPath),
		zap.Int("animations", len(set.Animations)),
		zap.Int("files", len(manifest.Files())))
	return nil
}

func writePNG(dst string, img image.Image) error {
	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("%w: creating %s: %w", rig.ErrIO, dst, err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("%w: encoding %s: %w", rig.ErrIO, dst, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: closing %s: %w", rig.ErrIO, dst, err)
	}
	return nil
}

// writeFileAtomic writes data next to dst and renames it into place.
func writeFileAtomic(dst string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".scml-*")
	if err != nil {
		return fmt.Errorf("%w: %w", rig.ErrIO, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: writing %s: %w", rig.ErrIO, dst, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: writing %s: %w", rig.ErrIO, dst, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("%w: %w", rig.ErrIO, err)
	}
	return nil
}

// writeDocument writes doc with its XML header. A non-empty charset other
// than UTF-8 is declared in the header and the whole document is converted.
func writeDocument(w io.Writer, doc *wireDocument, charset string) error {
	utf8 := charset == "" || strings.EqualFold(charset, "utf-8")
	header := xml.Header
	if !utf8 {
		if _, err := encoding.Lookup(charset); err != nil {
			return err
		}
		header = fmt.Sprintf(`<?xml version="1.0" encoding="%s"?>`+"\n", charset)
	}

	var buf bytes.Buffer
	buf.WriteString(header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "    ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding SCML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encoding SCML: %w", err)
	}
	buf.WriteString("\n")

	data := buf.Bytes()
	if !utf8 {
		converted, err := encoding.FromUTF8(charset, buf.String())
		if err != nil {
			return err
		}
		data = converted
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("%w: %w", rig.ErrIO, err)
	}
	return nil
}

func buildDocument(set *rig.AnimationSet, manifest *Manifest, o *options) (*wireDocument, error) {
	doc := &wireDocument{
		SCMLVersion:      o.scmlVersion,
		Generator:        o.generator,
		GeneratorVersion: o.generatorVersion,
	}
	for _, folder := range manifest.Folders {
		wf := wireFolder{ID: formatInt(folder.ID), Name: folder.Name}
		for _, f := range folder.Files {
			file := wireFile{
				ID:     formatInt(f.ID),
				Name:   f.Name,
				Width:  formatInt(f.Width),
				Height: formatInt(f.Height),
			}
			if !f.Offset.IsZero() {
				file.OffsetX = formatFloat(f.Offset.X)
				file.OffsetY = formatFloat(f.Offset.Y)
			}
			wf.Files = append(wf.Files, file)
		}
		doc.Folders = append(doc.Folders, wf)
	}
	o.log.Debug("built SCML manifest", zap.Int("folders", len(doc.Folders)), zap.Int("files", len(manifest.Files())))

	entityID := set.ID
	if entityID < 0 {
		entityID = 0
	}
	entity := wireEntity{ID: formatInt(entityID), Name: set.Name}
	for _, a := range set.Animations {
		wa, err := buildAnimation(a, manifest)
		if err != nil {
			return nil, fmt.Errorf("animation %q: %w", a.Name, err)
		}
		entity.Animations = append(entity.Animations, wa)
		o.log.Debug("encoded animation",
			zap.String("name", a.Name),
			zap.Int("keyframes", len(a.Keyframes)),
			zap.Int("timelines", len(wa.Timelines)))
	}
	doc.Entities = []wireEntity{entity}
	return doc, nil
}

// timelineSet creates each timeline on first reference.
type timelineSet struct {
	timelines []wireTimeline
	index     map[int]int
}

func (ts *timelineSet) get(id int, name, objectType string) *wireTimeline {
	if i, ok := ts.index[id]; ok {
		return &ts.timelines[i]
	}
	ts.index[id] = len(ts.timelines)
	ts.timelines = append(ts.timelines, wireTimeline{
		ID:         formatInt(id),
		Name:       name,
		ObjectType: objectType,
	})
	return &ts.timelines[len(ts.timelines)-1]
}

func buildAnimation(a *rig.Animation, manifest *Manifest) (wireAnimation, error) {
	id := a.ID
	if id < 0 {
		id = 0
	}
	wa := wireAnimation{
		ID:      formatInt(id),
		Name:    a.Name,
		Length:  formatInt(a.Length),
		Looping: formatBool(a.Looping),
	}
	ts := &timelineSet{index: make(map[int]int)}

	for _, kf := range a.Keyframes {
		key := wireMainlineKey{ID: formatInt(kf.ID), Time: formatInt(kf.Time)}
		state := kf.State

		for i := range state.Bones {
			b := &state.Bones[i]
			ref := wireRef{
				ID:       formatInt(b.ID),
				Timeline: formatInt(b.ID),
				Key:      formatInt(kf.ID),
			}
			if b.HasParent() {
				ref.Parent = formatInt(b.Parent)
			}
			key.BoneRefs = append(key.BoneRefs, ref)

			t := b.Transform
			tl := ts.get(b.ID, b.Name, "bone")
			tl.Keys = append(tl.Keys, wireTimelineKey{
				ID:   formatInt(kf.ID),
				Spin: formatInt(-t.Spin),
				Time: formatInt(kf.Time),
				Bone: &wireBone{
					X:      formatFloat(t.X),
					Y:      formatFloat(-t.Y),
					Angle:  formatFloat(rig.NormalizeAngle(-t.Angle)),
					ScaleX: formatFloat(t.ScaleX),
					ScaleY: formatFloat(t.ScaleY),
				},
			})
		}

		base := len(state.Bones)
		for i := range state.Skins {
			sk := &state.Skins[i]
			owner := sk.Name
			if bone := state.Bone(sk.Parent); bone != nil {
				owner = bone.Name
			}
			file, ok := manifest.FileFor(owner)
			if !ok {
				return wireAnimation{}, fmt.Errorf("%w: no image for skin %q (bone %q)", rig.ErrMissingReference, sk.Name, owner)
			}

			timelineID := base + i
			ref := wireRef{
				ID:       formatInt(i),
				Timeline: formatInt(timelineID),
				Key:      formatInt(kf.ID),
				ZIndex:   formatInt(i),
			}
			if sk.HasParent() {
				ref.Parent = formatInt(sk.Parent)
			}
			key.ObjectRefs = append(key.ObjectRefs, ref)

			t := sk.Transform
			pos := t.Position().Add(file.Offset.Rotate(t.Angle))
			tl := ts.get(timelineID, sk.Name, "")
			tl.Keys = append(tl.Keys, wireTimelineKey{
				ID:   formatInt(kf.ID),
				Spin: formatInt(-t.Spin),
				Time: formatInt(kf.Time),
				Object: &wireObject{
					Folder: formatInt(file.FolderID),
					File:   formatInt(file.ID),
					X:      formatFloat(pos.X),
					Y:      formatFloat(-pos.Y),
					Angle:  formatFloat(rig.NormalizeAngle(-t.Angle)),
					ScaleX: formatFloat(t.ScaleX),
					ScaleY: formatFloat(t.ScaleY),
					PivotX: formatFloat(sk.PivotX),
					PivotY: formatFloat(1 - sk.PivotY),
					Alpha:  formatFloat(sk.Opacity),
				},
			})
		}

		wa.Mainline.Keys = append(wa.Mainline.Keys, key)
	}

	wa.Timelines = ts.timelines
	return wa, nil
}
