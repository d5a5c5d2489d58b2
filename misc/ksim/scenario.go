package main

import "bufio"
import "bytes"
import "fmt"
import "io"
import "strconv"
import "strings"
import "time"

import "github.com/go-errors/errors"
import "github.com/hashicorp/go-hclog"
import "golang.org/x/tools/txtar"

import "ukern/src/accnt"
import "ukern/src/config"
import "ukern/src/defs"
import "ukern/src/kernel"
import "ukern/src/limits"
import "ukern/src/mem"
import "ukern/src/proc"
import "ukern/src/stats"

// syscall names accepted in scripts
var callnums = map[string]int{
	"write":     defs.SYS_WRITE,
	"exit":      defs.SYS_EXIT,
	"yield":     defs.SYS_YIELD,
	"get_time":  defs.SYS_GET_TIME,
	"sbrk":      defs.SYS_SBRK,
	"munmap":    defs.SYS_MUNMAP,
	"mmap":      defs.SYS_MMAP,
	"task_info": defs.SYS_TASK_INFO,
}

/// Scenario_t is one parsed txtar archive.
type Scenario_t struct {
	Name   string
	Config config.Config_t
	Script []byte
}

/// Result_t summarizes a finished scenario.
type Result_t struct {
	Name     string
	Ncalls   int
	Failures []string
	Tasks    []Taskrep_t
	// tasks still waiting to run when the script ended
	Nready int
	Kstats string
	// user and system time summed over all tasks, as rusage
	Rusage []uint8
}

/// Taskrep_t is the final state of one task.
type Taskrep_t struct {
	Name     string
	Status   proc.TaskStatus_t
	Exitcode int
	Calls    stats.Taskcalls_t
	Rusage   []uint8
}

/// Parse_scenario reads a txtar archive. The archive must hold a
/// "script" file and may hold a "config.json" applied over base.
func Parse_scenario(name string, data []byte, base config.Config_t) (*Scenario_t, error) {
	ar := txtar.Parse(data)
	sc := &Scenario_t{Name: name, Config: base}
	for _, f := range ar.Files {
		switch f.Name {
		case "script":
			sc.Script = f.Data
		case "config.json":
			c, err := config.Parse(f.Data, base)
			if err != nil {
				return nil, errors.WrapPrefix(err, name+": config.json", 0)
			}
			sc.Config = c
		default:
			return nil, errors.Errorf("%s: unexpected file %q", name, f.Name)
		}
	}
	if sc.Script == nil {
		return nil, errors.Errorf("%s: no script", name)
	}
	return sc, nil
}

// machine_t is a booted kernel running one script.
type machine_t struct {
	k    *kernel.Kernel_t
	ts   *proc.Tasks_t
	clk  accnt.Clock_i
	log  hclog.Logger
	last int
	res  *Result_t
}

func parsenum(s string) (uintptr, error) {
	n, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		u, uerr := strconv.ParseUint(s, 0, 64)
		if uerr != nil {
			return 0, errors.Wrap(err, 0)
		}
		return uintptr(u), nil
	}
	return uintptr(n), nil
}

/// Run boots a fresh kernel with the scenario's configuration and
/// executes its script. Console output goes to console.
func (sc *Scenario_t) Run(console io.Writer, log hclog.Logger) (*Result_t, error) {
	limits.Syslimit = sc.Config.Limits()
	phys, err := mem.Phys_init(sc.Config.Phys_pages)
	if err != nil {
		return nil, err
	}
	defer phys.Close()

	m := &machine_t{}
	m.clk = sc.Config.Mkclock()
	m.log = log.Named(sc.Name)
	m.ts = proc.Mktasks(m.clk, m.log.Named("proc"))
	m.k = kernel.Mkkernel(m.ts, console, m.log.Named("kernel"))
	m.res = &Result_t{Name: sc.Name}

	s := bufio.NewScanner(bytes.NewReader(sc.Script))
	for lineno := 1; s.Scan(); lineno++ {
		line := strings.TrimSpace(s.Text())
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		if line == "" {
			continue
		}
		if err := m.step(strings.Fields(line)); err != nil {
			return nil, errors.WrapPrefix(err, fmt.Sprintf("%s:%d", sc.Name, lineno), 0)
		}
	}
	if err := s.Err(); err != nil {
		return nil, errors.Wrap(err, 0)
	}

	m.res.Nready = m.ts.Nready()
	tot := accnt.Mkaccnt()
	for _, t := range m.ts.Tasks() {
		m.res.Tasks = append(m.res.Tasks, Taskrep_t{
			Name:     t.Name,
			Status:   t.Status,
			Exitcode: t.Exitcode,
			Calls:    t.Calls(),
			Rusage:   t.Accnt.Fetch(),
		})
		tot.Add(t.Accnt)
		if t.Status != proc.Exited {
			t.Vm.Uvmfree()
		}
	}
	m.res.Rusage = tot.Fetch()
	m.res.Kstats = stats.Stats2String(&m.k.Kstats)
	return m.res, nil
}

func (m *machine_t) fail(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	m.log.Error("expectation failed", "detail", msg)
	m.res.Failures = append(m.res.Failures, msg)
}

func (m *machine_t) current() (*proc.Task_t, error) {
	t := m.ts.Current()
	if t == nil {
		return nil, errors.Errorf("no current task")
	}
	return t, nil
}

// step runs one script command.
func (m *machine_t) step(f []string) error {
	nums := func(args []string, want int) ([]uintptr, error) {
		if len(args) != want {
			return nil, errors.Errorf("%s wants %d arguments, got %d", f[0], want, len(args))
		}
		ret := make([]uintptr, len(args))
		for i, a := range args {
			n, err := parsenum(a)
			if err != nil {
				return nil, err
			}
			ret[i] = n
		}
		return ret, nil
	}

	switch f[0] {
	case "spawn":
		if len(f) != 2 {
			return errors.Errorf("spawn wants a name")
		}
		if _, err := m.ts.Spawn(f[1]); err != 0 {
			m.fail("spawn %s: %v", f[1], err)
			return nil
		}
		m.ts.Run()
	case "expect":
		a, err := nums(f[1:], 1)
		if err != nil {
			return err
		}
		if want := int(a[0]); m.last != want {
			m.fail("%s: got %d, want %d", strings.Join(f, " "), m.last, want)
		}
	case "advance":
		if len(f) != 2 {
			return errors.Errorf("advance wants a duration")
		}
		d, err := time.ParseDuration(f[1])
		if err != nil {
			return errors.Wrap(err, 0)
		}
		mc, ok := m.clk.(*accnt.Manualclock_t)
		if !ok {
			return errors.Errorf("advance needs the manual clock")
		}
		mc.Advance(d)
	case "peek":
		a, err := nums(f[1:], 3)
		if err != nil {
			return err
		}
		t, err := m.current()
		if err != nil {
			return err
		}
		v, kerr := t.Vm.Userreadn(int(a[0]), int(a[1]))
		if kerr != 0 {
			m.fail("peek %#x: %v", a[0], kerr)
		} else if v != int(a[2]) {
			m.fail("peek %#x: got %d, want %d", a[0], v, int(a[2]))
		}
	case "puts":
		if len(f) < 3 {
			return errors.Errorf("puts wants an address and text")
		}
		va, err := parsenum(f[1])
		if err != nil {
			return err
		}
		t, err := m.current()
		if err != nil {
			return err
		}
		text := strings.Join(f[2:], " ") + "\n"
		if kerr := t.Vm.K2user([]uint8(text), int(va)); kerr != 0 {
			m.fail("puts %#x: %v", va, kerr)
		}
	default:
		id, ok := callnums[f[0]]
		if !ok {
			if n, err := strconv.Atoi(strings.TrimPrefix(f[0], "sys_")); err == nil {
				id = n
			} else {
				return errors.Errorf("unknown command %q", f[0])
			}
		}
		if len(f) > 4 {
			return errors.Errorf("%s takes at most 3 arguments", f[0])
		}
		a, err := nums(f[1:], len(f)-1)
		if err != nil {
			return err
		}
		var args kernel.Sysargs_t
		copy(args[:], a)
		if _, err := m.current(); err != nil {
			return err
		}
		m.last = m.k.Syscall(id, args)
		m.res.Ncalls++
	}
	return nil
}
