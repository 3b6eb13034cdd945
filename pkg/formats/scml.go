package formats

import (
	"encoding/xml"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/Faultbox/chophuman/pkg/math"
)

// SCML format errors.
var (
	ErrMalformedSCML = errors.New("malformed SCML")
	ErrNoEntity      = errors.New("SCML entity not found")
)

// SCML header defaults.
const (
	SCMLVersion      = "1.0"
	DefaultGenerator = "ChopHuman SCML Exporter"
	GeneratorVersion = "0.1.0"
)

// FileEntry is one image asset listed in the SCML folder manifest.
type FileEntry struct {
	ID       int
	FolderID int
	Name     string    // path relative to the SCML file
	Path     string    // resolved location on disk, set on import
	Width    int
	Height   int
	Offset   math.Vec2 // crop offset from the uncropped image's top-left
	Bone     string    // bone whose skin shows this image
	Normal   bool      // normal map rather than diffuse
}

// Folder groups file entries.
type Folder struct {
	ID    int
	Name  string
	Files []FileEntry
}

// Manifest is the image asset table of an SCML file.
type Manifest struct {
	Folders []Folder
}

// File returns the entry with the given folder and file id.
func (m *Manifest) File(folderID, fileID int) (FileEntry, bool) {
	for _, folder := range m.Folders {
		if folder.ID != folderID {
			continue
		}
		for _, f := range folder.Files {
			if f.ID == fileID {
				return f, true
			}
		}
	}
	return FileEntry{}, false
}

// FileFor returns the image a skin attached to bone should reference:
// the diffuse map when present, else the normal map.
func (m *Manifest) FileFor(bone string) (FileEntry, bool) {
	var normal *FileEntry
	for i := range m.Folders {
		for j := range m.Folders[i].Files {
			f := &m.Folders[i].Files[j]
			if f.Bone != bone {
				continue
			}
			if !f.Normal {
				return *f, true
			}
			if normal == nil {
				normal = f
			}
		}
	}
	if normal != nil {
		return *normal, true
	}
	return FileEntry{}, false
}

// Files returns every entry in folder order.
func (m *Manifest) Files() []FileEntry {
	var out []FileEntry
	for _, folder := range m.Folders {
		out = append(out, folder.Files...)
	}
	return out
}

// assetName returns the manifest item name for a bone image, e.g. "torso_d".
func assetName(bone string, normal bool) string {
	if normal {
		return bone + "_n"
	}
	return bone + "_d"
}

// parseAssetName recovers bone and kind from a file name written by assetName.
func parseAssetName(name string) (bone string, normal bool) {
	stem := strings.TrimSuffix(path.Base(name), path.Ext(name))
	switch {
	case strings.HasSuffix(stem, "_n"):
		return strings.TrimSuffix(stem, "_n"), true
	case strings.HasSuffix(stem, "_d"):
		return strings.TrimSuffix(stem, "_d"), false
	}
	return "", false
}

// Wire structs. Numeric attributes are kept as text so that optional values
// and their defaults can be told apart from zero.

type wireDocument struct {
	XMLName          xml.Name     `xml:"spriter_data"`
	SCMLVersion      string       `xml:"scml_version,attr"`
	Generator        string       `xml:"generator,attr"`
	GeneratorVersion string       `xml:"generator_version,attr"`
	Folders          []wireFolder `xml:"folder"`
	Entities         []wireEntity `xml:"entity"`
}

type wireFolder struct {
	ID    string     `xml:"id,attr"`
	Name  string     `xml:"name,attr"`
	Files []wireFile `xml:"file"`
}

type wireFile struct {
	ID      string `xml:"id,attr"`
	Name    string `xml:"name,attr"`
	Width   string `xml:"width,attr"`
	Height  string `xml:"height,attr"`
	OffsetX string `xml:"offset_x,attr,omitempty"`
	OffsetY string `xml:"offset_y,attr,omitempty"`
}

type wireEntity struct {
	ID         string          `xml:"id,attr"`
	Name       string          `xml:"name,attr"`
	Animations []wireAnimation `xml:"animation"`
}

type wireAnimation struct {
	ID        string         `xml:"id,attr"`
	Name      string         `xml:"name,attr"`
	Length    string         `xml:"length,attr"`
	Looping   string         `xml:"looping,attr,omitempty"`
	Mainline  wireMainline   `xml:"mainline"`
	Timelines []wireTimeline `xml:"timeline"`
}

type wireMainline struct {
	Keys []wireMainlineKey `xml:"key"`
}

type wireMainlineKey struct {
	ID         string    `xml:"id,attr"`
	Time       string    `xml:"time,attr,omitempty"`
	BoneRefs   []wireRef `xml:"bone_ref"`
	ObjectRefs []wireRef `xml:"object_ref"`
}

// wireRef is a bone_ref or object_ref.
type wireRef struct {
	ID       string `xml:"id,attr"`
	Parent   string `xml:"parent,attr,omitempty"`
	Timeline string `xml:"timeline,attr"`
	Key      string `xml:"key,attr"`
	ZIndex   string `xml:"z_index,attr,omitempty"`
}

type wireTimeline struct {
	ID         string            `xml:"id,attr"`
	Name       string            `xml:"name,attr"`
	ObjectType string            `xml:"object_type,attr,omitempty"`
	Keys       []wireTimelineKey `xml:"key"`
}

type wireTimelineKey struct {
	ID     string      `xml:"id,attr"`
	Spin   string      `xml:"spin,attr,omitempty"`
	Time   string      `xml:"time,attr,omitempty"`
	Bone   *wireBone   `xml:"bone"`
	Object *wireObject `xml:"object"`
}

type wireBone struct {
	X      string `xml:"x,attr"`
	Y      string `xml:"y,attr"`
	Angle  string `xml:"angle,attr"`
	ScaleX string `xml:"scale_x,attr"`
	ScaleY string `xml:"scale_y,attr"`
}

type wireObject struct {
	Folder string `xml:"folder,attr"`
	File   string `xml:"file,attr"`
	X      string `xml:"x,attr"`
	Y      string `xml:"y,attr"`
	Angle  string `xml:"angle,attr"`
	ScaleX string `xml:"scale_x,attr,omitempty"`
	ScaleY string `xml:"scale_y,attr,omitempty"`
	PivotX string `xml:"pivot_x,attr,omitempty"`
	PivotY string `xml:"pivot_y,attr,omitempty"`
	Alpha  string `xml:"a,attr,omitempty"`
}

func formatInt(v int) string {
	return strconv.Itoa(v)
}

// formatFloat writes the shortest text that parses back to v. Negative zero
// is written as "0".
func formatFloat(v float64) string {
	return strconv.FormatFloat(v+0, 'f', -1, 64)
}

func formatBool(v bool) string {
	return strconv.FormatBool(v)
}

// attrReader parses attribute text and keeps the first failure.
type attrReader struct {
	elem string
	err  error
}

func (r *attrReader) fail(attr, value string) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: %s %s=%q", ErrMalformedSCML, r.elem, attr, value)
	}
}

func (r *attrReader) intAttr(attr, value string) int {
	if value == "" {
		r.fail(attr, value)
		return 0
	}
	v, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		r.fail(attr, value)
	}
	return v
}

func (r *attrReader) intAttrOr(attr, value string, def int) int {
	if value == "" {
		return def
	}
	return r.intAttr(attr, value)
}

func (r *attrReader) floatAttr(attr, value string) float64 {
	if value == "" {
		r.fail(attr, value)
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		r.fail(attr, value)
	}
	return v
}

func (r *attrReader) floatAttrOr(attr, value string, def float64) float64 {
	if value == "" {
		return def
	}
	return r.floatAttr(attr, value)
}

func (r *attrReader) boolAttrOr(attr, value string, def bool) bool {
	if value == "" {
		return def
	}
	v, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		r.fail(attr, value)
	}
	return v
}
