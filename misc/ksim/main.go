// Command ksim boots the simulated kernel and drives its syscall
// surface from txtar scenario scripts.
//
//	ksim [-config ksim.json] [-profile out.pb.gz] scenario.txtar...
//
// Each scenario runs on a freshly booted kernel. ksim exits nonzero if
// any expectation in any scenario fails.
package main

import "flag"
import "fmt"
import "io"
import "os"
import "path/filepath"
import "strings"
import "time"

import "github.com/go-errors/errors"
import "github.com/google/pprof/profile"
import "golang.org/x/text/language"
import "golang.org/x/text/message"

import "ukern/src/config"
import "ukern/src/klog"
import "ukern/src/stats"
import "ukern/src/util"

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s [-config file] [-profile file] scenario.txtar...\n", os.Args[0])
	flag.PrintDefaults()
	os.Exit(2)
}

func main() {
	cfgpath := flag.String("config", "", "JSON configuration `file`")
	profpath := flag.String("profile", "", "write a pprof profile of syscall counts to `file`")
	level := flag.String("log", "", "log level; overrides the configuration")
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() == 0 {
		usage()
	}

	if err := run(*cfgpath, *profpath, *level, flag.Args(), os.Stdout); err != nil {
		if e, ok := err.(*errors.Error); ok && os.Getenv("KSIM_STACK") != "" {
			fmt.Fprintln(os.Stderr, e.ErrorStack())
		} else {
			fmt.Fprintln(os.Stderr, "ksim:", err)
		}
		os.Exit(1)
	}
}

var errFailed = errors.Errorf("expectations failed")

func run(cfgpath, profpath, level string, paths []string, out io.Writer) error {
	cfg := config.Default()
	if cfgpath != "" {
		c, err := config.Load(cfgpath)
		if err != nil {
			return err
		}
		cfg = c
	}
	if level != "" {
		cfg.Log_level = level
	}
	log := klog.New("ksim", cfg.Log_level, os.Stderr)

	p := message.NewPrinter(language.English)
	var all []stats.Taskcalls_t
	nfail := 0
	start := time.Now()
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrap(err, 0)
		}
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		sc, err := Parse_scenario(name, data, cfg)
		if err != nil {
			return err
		}
		res, err := sc.Run(out, log)
		if err != nil {
			return err
		}
		report(p, out, res)
		nfail += len(res.Failures)
		for _, t := range res.Tasks {
			c := t.Calls
			c.Name = name + "/" + c.Name
			all = append(all, c)
		}
	}

	if profpath != "" {
		if err := writeprof(profpath, stats.Profile(all, time.Since(start).Nanoseconds())); err != nil {
			return err
		}
	}
	if nfail != 0 {
		return errors.WrapPrefix(errFailed, p.Sprintf("%d", nfail), 0)
	}
	return nil
}

func report(p *message.Printer, w io.Writer, res *Result_t) {
	verdict := "ok"
	if len(res.Failures) != 0 {
		verdict = "FAIL"
	}
	p.Fprintf(w, "%-4s %s: %d syscalls, %d tasks, %d ready, %s\n", verdict, res.Name,
		res.Ncalls, len(res.Tasks), res.Nready, rustr(res.Rusage))
	for _, f := range res.Failures {
		p.Fprintf(w, "\t%s\n", f)
	}
	for _, t := range res.Tasks {
		total := 0
		for _, n := range t.Calls.Calls {
			total += int(n)
		}
		p.Fprintf(w, "\t%-12s %-8v exit %d, %d syscalls, %s\n", t.Name, t.Status,
			t.Exitcode, total, rustr(t.Rusage))
	}
	p.Fprintf(w, "\tkernel:%s", strings.ReplaceAll(res.Kstats, "\n\t", "\n\t\t"))
}

// rustr formats the two timevals of an rusage record.
func rustr(ru []uint8) string {
	return fmt.Sprintf("user %d.%06ds sys %d.%06ds",
		util.Readn(ru, 8, 0), util.Readn(ru, 8, 8),
		util.Readn(ru, 8, 16), util.Readn(ru, 8, 24))
}

func writeprof(path string, prof *profile.Profile) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, 0)
	}
	if err := prof.Write(f); err != nil {
		f.Close()
		return errors.Wrap(err, 0)
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, 0)
	}
	return nil
}
