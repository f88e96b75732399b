package jobspec

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
)

// LoadDir loads every CUE file in dir as one instance and compiles each
// entry under "job". It keeps going after a bad job so all errors are
// reported together; jobs are returned in declaration order.
func LoadDir(dir string) ([]Job, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{fmt.Errorf("jobs directory not found: %s", dir)}
	}
	if err != nil {
		return nil, []error{fmt.Errorf("accessing jobs directory: %w", err)}
	}
	if !info.IsDir() {
		return nil, []error{fmt.Errorf("not a directory: %s", dir)}
	}

	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{fmt.Errorf("scanning %s: %w", dir, err)}
	}
	if len(files) == 0 {
		return nil, []error{fmt.Errorf("no CUE files found in %s", dir)}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{fmt.Errorf("no CUE instances loaded from %s", dir)}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{formatCUEError(inst.Err)}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{formatCUEError(err)}
	}

	jobsVal := value.LookupPath(cue.ParsePath("job"))
	if !jobsVal.Exists() {
		return nil, []error{fmt.Errorf("no jobs declared in %s", dir)}
	}
	iter, err := jobsVal.Fields()
	if err != nil {
		return nil, []error{formatCUEError(err)}
	}

	var (
		jobs []Job
		errs []error
	)
	for iter.Next() {
		job, err := CompileJob(iter.Value())
		if err != nil {
			errs = append(errs, fmt.Errorf("job.%s: %w", iter.Label(), err))
			continue
		}
		jobs = append(jobs, *job)
	}
	return jobs, errs
}

// FindCUEFiles walks dir and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
