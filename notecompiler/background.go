package notecompiler

import (
	"errors"
	"fmt"
	"image/color"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/patrickmn/go-cache"
)

// BackgroundResolver turns a note's background handle into an image.
type BackgroundResolver interface {
	Resolve(handle string) (*Image, error)
}

var builtinBackgrounds = map[string]color.Color{
	"plain":     color.White,
	"parchment": color.RGBA{R: 245, G: 236, B: 214, A: 255},
}

// BackgroundLister is implemented by resolvers that can enumerate the
// handles they accept.
type BackgroundLister interface {
	List() ([]string, error)
}

// BuiltinBackgrounds lists the handles that resolve without an asset directory.
func BuiltinBackgrounds() []string {
	return []string{"plain", "parchment"}
}

var backgroundExts = []string{"", ".png", ".jpg", ".jpeg", ".webp", ".gif", ".bmp"}

// AssetResolver resolves backgrounds from an fs.FS of bundled assets, plus
// the built-in solid backgrounds. Decoded images are cached by handle.
type AssetResolver struct {
	fsys  fs.FS
	cache *cache.Cache
}

// NewAssetResolver serves backgrounds from fsys. A nil fsys serves only the
// built-in backgrounds.
func NewAssetResolver(fsys fs.FS) *AssetResolver {
	return &AssetResolver{
		fsys:  fsys,
		cache: cache.New(cache.NoExpiration, 0),
	}
}

// Resolve finds handle, trying common image extensions when it has none.
func (r *AssetResolver) Resolve(handle string) (*Image, error) {
	if cached, ok := r.cache.Get(handle); ok {
		return cached.(*Image), nil
	}

	if c, ok := builtinBackgrounds[handle]; ok {
		img := SolidImage("background:"+handle, c)
		r.cache.Set(handle, img, cache.NoExpiration)
		return img, nil
	}

	if r.fsys == nil {
		return nil, fmt.Errorf("unknown background %q", handle)
	}
	name := path.Clean(handle)
	if !fs.ValidPath(name) {
		return nil, fmt.Errorf("invalid background path %q", handle)
	}

	for _, ext := range backgroundExts {
		f, err := r.fsys.Open(name + ext)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("opening background: %w", err)
		}
		img, err := DecodeImage("background:"+name+ext, f)
		f.Close()
		if err != nil {
			return nil, err
		}
		r.cache.Set(handle, img, cache.NoExpiration)
		return img, nil
	}
	return nil, fmt.Errorf("background %q: %w", handle, fs.ErrNotExist)
}

// List returns every handle Resolve accepts: the built-ins first, then the
// image files of the asset tree as slash separated paths without their
// extension. Hidden files and directories are skipped.
func (r *AssetResolver) List() ([]string, error) {
	handles := BuiltinBackgrounds()
	if r.fsys == nil {
		return handles, nil
	}

	seen := make(map[string]bool)
	for _, h := range handles {
		seen[h] = true
	}
	var found []string
	err := fs.WalkDir(r.fsys, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if name != "." && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		handle, ok := backgroundHandle(name)
		if ok && !seen[handle] {
			seen[handle] = true
			found = append(found, handle)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing backgrounds: %w", err)
	}

	sort.Strings(found)
	return append(handles, found...), nil
}

// backgroundHandle maps an image file name to the handle that resolves it.
// Extensions Resolve does not try itself are kept in the handle.
func backgroundHandle(name string) (string, bool) {
	ext := path.Ext(name)
	if ext == "" {
		return "", false
	}
	for _, known := range backgroundExts[1:] {
		if ext == known {
			return strings.TrimSuffix(name, ext), true
		}
		if strings.EqualFold(ext, known) {
			return name, true
		}
	}
	return "", false
}
