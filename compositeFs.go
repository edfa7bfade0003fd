//go:build !tinygo

package sonar

import (
	"html/template"
	"io/fs"
)

// CompositeFS layers file systems.  Later layers shadow earlier ones.
type CompositeFS struct {
	fileSystems []fs.FS
}

func NewCompositeFS(layers ...fs.FS) *CompositeFS {
	return &CompositeFS{fileSystems: layers}
}

func (c *CompositeFS) AddFS(fsys fs.FS) {
	c.fileSystems = append(c.fileSystems, fsys)
}

func (c *CompositeFS) Open(name string) (fs.File, error) {

	// Start with newest (last added) FS, giving newer FSes priority over
	// older FSes when searching for file name.  The first FS with a
	// matching file name wins.

	for i := len(c.fileSystems) - 1; i >= 0; i-- {
		fsys := c.fileSystems[i]
		if file, err := fsys.Open(name); err == nil {
			return file, nil
		}
	}

	return nil, fs.ErrNotExist
}

// ParseFS builds one template set from the files matching pattern in every
// layer.  When two layers define the same template the newest wins.
func (c *CompositeFS) ParseFS(pattern string) (*template.Template, error) {

	mainTmpl := template.New("main")

	for _, fsys := range c.fileSystems {
		matches, err := fs.Glob(fsys, pattern)
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			continue
		}
		if _, err := mainTmpl.ParseFS(fsys, pattern); err != nil {
			return nil, err
		}
	}

	return mainTmpl, nil
}
