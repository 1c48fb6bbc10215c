// Package batch converts a whole directory tree of DICOM series into raw
// volumes, one volume per directory that directly contains files.
package batch

import (
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Job is the unit of batch work: the direct files of one directory.
type Job struct {
	// Dir is the directory, joined onto the walk root
	Dir string

	// Prefix is the base name of Dir, used for the output filename
	Prefix string

	// Files are the direct files of Dir, sorted by name
	Files []string

	// Err is set when Dir could not be listed. Such a job has no files and
	// is reported as failed without being run.
	Err error
}

// PlanOptions controls which entries Plan considers.
type PlanOptions struct {
	// SkipHidden ignores entries whose name starts with a dot
	SkipHidden bool
}

// Plan walks fsys bottom-up, children before their parent, and returns a Job
// for every directory that directly contains at least one file. Paths in the
// returned jobs are joined onto root, the OS path fsys was opened from.
// Symlinked directories are not followed. A subdirectory that cannot be
// listed yields a Job carrying Err and the walk goes on; only an unreadable
// root is an error.
func Plan(fsys fs.FS, root string, opts PlanOptions) ([]Job, error) {
	p := &planner{fsys: fsys, root: root, opts: opts}
	if err := p.visit("."); err != nil {
		return nil, err
	}
	return p.jobs, nil
}

type planner struct {
	fsys fs.FS
	root string
	opts PlanOptions
	jobs []Job
}

func (p *planner) visit(dir string) error {
	entries, err := fs.ReadDir(p.fsys, dir)
	if err != nil {
		err = errors.Wrapf(err, "read directory %v", p.osPath(dir))
		if dir == "." {
			return err
		}
		p.jobs = append(p.jobs, Job{Dir: p.osPath(dir), Prefix: p.prefix(dir), Err: err})
		return nil
	}

	var files []string
	for _, e := range entries {
		if p.opts.SkipHidden && strings.HasPrefix(e.Name(), ".") {
			continue
		}
		name := path.Join(dir, e.Name())
		switch {
		case e.IsDir():
			if err := p.visit(name); err != nil {
				return err
			}
		case e.Type().IsRegular():
			files = append(files, p.osPath(name))
		case e.Type()&fs.ModeSymlink != 0:
			info, err := fs.Stat(p.fsys, name)
			if err != nil {
				// dangling link
				continue
			}
			if info.Mode().IsRegular() {
				files = append(files, p.osPath(name))
			}
		}
	}

	if len(files) > 0 {
		p.jobs = append(p.jobs, Job{Dir: p.osPath(dir), Prefix: p.prefix(dir), Files: files})
	}
	return nil
}

func (p *planner) osPath(name string) string {
	return filepath.Join(p.root, filepath.FromSlash(name))
}

func (p *planner) prefix(dir string) string {
	if dir == "." {
		return filepath.Base(filepath.Clean(p.root))
	}
	return path.Base(dir)
}
