package main

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/chophuman/internal/assets"
	"github.com/Faultbox/chophuman/pkg/formats"
	"github.com/Faultbox/chophuman/pkg/rig"
)

// pose builds root -> arm with a skin on the arm.
func pose(t *testing.T, armX, armAngle float64) *rig.EntityState {
	t.Helper()
	s := rig.NewEntityState()
	root := rig.NewBone("root")
	root.Transform.X = 100
	_, err := s.AddBone(root)
	require.NoError(t, err)

	arm := rig.NewBone("arm")
	arm.Parent = 0
	arm.Transform.X = armX
	arm.Transform.Angle = armAngle
	_, err = s.AddBone(arm)
	require.NoError(t, err)

	_, err = s.AddSkin(rig.NewSkin("arm_skin", 1))
	require.NoError(t, err)
	return s
}

// writeFixture exports a set with a rest and a walk animation.
func writeFixture(t *testing.T) string {
	t.Helper()
	set := rig.NewAnimationSet("human")

	rest := rig.NewAnimation("rest", 10)
	require.NoError(t, rest.AddKeyframe(rig.NewKeyframe(0, pose(t, 8, 0))))
	require.NoError(t, rest.AddKeyframe(rig.NewKeyframe(5, pose(t, 18, 0))))
	require.NoError(t, set.AddAnimation(rest))

	walk := rig.NewAnimation("walk", 100)
	require.NoError(t, walk.AddKeyframe(rig.NewKeyframe(0, pose(t, 8, 0))))
	require.NoError(t, walk.AddKeyframe(rig.NewKeyframe(50, pose(t, 8, 90))))
	require.NoError(t, set.AddAnimation(walk))

	images := map[string]formats.SkinImages{
		"arm": {
			Diffuse: &formats.ImageRegion{Image: image.NewRGBA(image.Rect(0, 0, 6, 2))},
			Normal:  &formats.ImageRegion{Image: image.NewRGBA(image.Rect(0, 0, 6, 2))},
		},
	}
	path := filepath.Join(t.TempDir(), "human.scml")
	require.NoError(t, formats.ExportSCMLFile(set, images, path))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	var out, errOut bytes.Buffer
	root := newRootCmd(&out, &errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

// nodeFields returns the printed columns of the named node.
func nodeFields(t *testing.T, out, name string) []string {
	t.Helper()
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) > 1 && fields[1] == name {
			return fields
		}
	}
	t.Fatalf("node %q not in output:\n%s", name, out)
	return nil
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "scmltool "+version+"\n", out)
}

func TestInfo(t *testing.T) {
	path := writeFixture(t)

	out, err := run(t, "info", "--validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Images:    2")
	assert.Contains(t, out, "Entity 0: human")
	assert.Contains(t, out, "Bones: 2")
	assert.Contains(t, out, "arm_skin")
	assert.Contains(t, out, "walk                 length 100, looping, 2 keyframes")
	assert.NotContains(t, out, "INVALID")

	_, err = run(t, "info", "--entity", "nobody", path)
	assert.ErrorIs(t, err, formats.ErrNoEntity)

	_, err = run(t, "info", filepath.Join(t.TempDir(), "absent.scml"))
	assert.ErrorIs(t, err, rig.ErrIO)
}

func TestPose(t *testing.T) {
	path := writeFixture(t)

	out, err := run(t, "pose", "--local", path, "walk", "25")
	require.NoError(t, err)
	assert.Contains(t, out, "walk @ 25.000 (local)")
	assert.Equal(t, []string{"bone", "arm", "8.000", "0.000", "22.500", "1.000", "1.000"}, nodeFields(t, out, "arm"))

	out, err = run(t, "pose", path, "walk", "25")
	require.NoError(t, err)
	assert.Contains(t, out, "(world)")
	assert.Equal(t, "108.000", nodeFields(t, out, "arm")[2])

	// The last keyframe blends back to the first unless looping is off.
	out, err = run(t, "pose", "--local", path, "walk", "75")
	require.NoError(t, err)
	assert.Equal(t, "45.000", nodeFields(t, out, "arm")[4])

	out, err = run(t, "pose", "--local", "--no-looping", path, "walk", "75")
	require.NoError(t, err)
	assert.Equal(t, "90.000", nodeFields(t, out, "arm")[4])
}

func TestPoseErrors(t *testing.T) {
	path := writeFixture(t)

	_, err := run(t, "pose", path, "run", "0")
	assert.ErrorIs(t, err, rig.ErrMissingReference)

	_, err = run(t, "pose", path, "walk", "soon")
	assert.Error(t, err)

	_, err = run(t, "pose", path, "walk", "101")
	assert.Error(t, err)

	_, err = run(t, "pose", path, "walk")
	assert.Error(t, err, "missing argument")
}

func TestRetargetInPlace(t *testing.T) {
	path := writeFixture(t)

	out, err := run(t, "retarget", path)
	require.NoError(t, err)
	assert.Contains(t, out, `Retargeted 1 animations of "human" onto "rest"`)

	out, err = run(t, "pose", "--local", path, "walk", "0")
	require.NoError(t, err)
	assert.Equal(t, "18.000", nodeFields(t, out, "arm")[2])

	// The rest animation now starts and ends on the new rest pose.
	out, err = run(t, "pose", "--local", path, "rest", "0")
	require.NoError(t, err)
	assert.Equal(t, "18.000", nodeFields(t, out, "arm")[2])

	out, err = run(t, "assets", path)
	require.NoError(t, err, out)
}

func TestRetargetEncoding(t *testing.T) {
	path := writeFixture(t)

	_, err := run(t, "retarget", "--encoding", "euc-kr", path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), `<?xml version="1.0" encoding="euc-kr"?>`))

	out, err := run(t, "pose", "--local", path, "walk", "0")
	require.NoError(t, err)
	assert.Equal(t, "18.000", nodeFields(t, out, "arm")[2])

	_, err = run(t, "retarget", "--encoding", "klingon-8", path)
	assert.Error(t, err)
}

func TestRetargetErrors(t *testing.T) {
	path := writeFixture(t)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	_, err = run(t, "retarget", "--rest", "tpose", path)
	assert.ErrorIs(t, err, rig.ErrMissingPrecondition)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after, "failed retarget leaves the file untouched")
}

func TestRetargetWithAssets(t *testing.T) {
	path := writeFixture(t)
	output := filepath.Join(t.TempDir(), "retargeted.scml")

	_, err := run(t, "retarget", "--with-assets", "--generator", "Rigger", "-o", output, path)
	require.NoError(t, err)

	doc, err := formats.ParseSCMLFile(output)
	require.NoError(t, err)
	assert.Equal(t, "Rigger", doc.Generator)
	for _, f := range doc.Manifest.Files() {
		assert.FileExists(t, f.Path)
		assert.True(t, strings.HasPrefix(f.Name, "retargeted/"), f.Name)
	}

	out, err := run(t, "assets", output)
	require.NoError(t, err)
	assert.Contains(t, out, "2 images, 0 failed")
}

func TestAssets(t *testing.T) {
	path := writeFixture(t)

	out, err := run(t, "assets", path)
	require.NoError(t, err)
	assert.Contains(t, out, "human/arm_d.png")
	assert.Contains(t, out, "2 images, 0 failed")

	f, err := os.Create(filepath.Join(filepath.Dir(path), "human", "arm_d.png"))
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, 3, 3))))
	require.NoError(t, f.Close())

	out, err = run(t, "assets", path)
	assert.ErrorIs(t, err, assets.ErrSizeMismatch)
	assert.Contains(t, out, "FAILED")
	assert.Contains(t, out, "2 images, 1 failed")
}

func TestConfigFile(t *testing.T) {
	path := writeFixture(t)
	cfgPath := filepath.Join(t.TempDir(), "scmltool.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("playback:\n  precision: 1\n  flatten: false\n"), 0644))

	out, err := run(t, "--config", cfgPath, "pose", path, "walk", "25")
	require.NoError(t, err)
	assert.Contains(t, out, "(local)")
	assert.Equal(t, "22.5", nodeFields(t, out, "arm")[4])

	_, err = run(t, "--config", filepath.Join(t.TempDir(), "absent.yaml"), "info", path)
	assert.Error(t, err)
}
