package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/danmuck/dectctl/internal/cluster"
	"github.com/danmuck/dectctl/internal/config"
	"github.com/danmuck/dectctl/internal/dlc"
	"github.com/danmuck/dectctl/internal/mac"
	"github.com/danmuck/dectctl/internal/observability"
	"github.com/danmuck/dectctl/internal/protocol/tail"
	"github.com/danmuck/dectctl/internal/server"
	"github.com/danmuck/dectctl/internal/sysinfo"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const usage = `usage: dectctl <command> [flags]

commands:
  decode  [-role fp|pp] <hex word>...   decode tail words to JSON
  sysinfo [-role pp] -trace <file>     aggregate system information from a trace
  serve   -config <file> [-addr addr]  run clusters with the status API
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}
	var err error
	switch args[0] {
	case "decode":
		err = runDecode(args[1:], stdout, stderr)
	case "sysinfo":
		err = runSysinfo(args[1:], stdout, stderr)
	case "serve":
		err = runServe(args[1:], stderr)
	case "help", "-h", "-help", "--help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "dectctl: unknown command %q\n", args[0])
		fmt.Fprint(stderr, usage)
		return 2
	}
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "dectctl: %v\n", err)
		return 1
	}
	return 0
}

// commonFlags registers the flags every word handling command accepts. Flags
// given on the command line win over the settings file.
type commonFlags struct {
	settings string
	role     string
	output   string
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.settings, "settings", "", "CLI settings file (TOML)")
	fs.StringVar(&c.role, "role", "", "local role: fp|pp")
	fs.StringVar(&c.output, "output", "", "output format: json|text")
}

func (c *commonFlags) resolve() (cliSettings, error) {
	s := defaultSettings()
	if c.settings != "" {
		loaded, err := loadSettings(c.settings)
		if err != nil {
			return cliSettings{}, err
		}
		s = loaded
	}
	if c.role != "" {
		role, err := parseRole(c.role)
		if err != nil {
			return cliSettings{}, err
		}
		s.Role = role
	}
	if c.output != "" {
		out, err := parseOutput(c.output)
		if err != nil {
			return cliSettings{}, err
		}
		s.Output = out
	}
	return s, nil
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

type decoded struct {
	Word  string     `json:"word"`
	Tail  *tail.Tail `json:"tail,omitempty"`
	Error string     `json:"error,omitempty"`
}

func (d decoded) String() string {
	if d.Tail == nil {
		return fmt.Sprintf("%s\terror: %s", d.Word, d.Error)
	}
	return fmt.Sprintf("%s\t%s\t%s\t%+v", d.Word, d.Tail.ID, d.Tail.Msg.Kind(), d.Tail.Msg)
}

func runDecode(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("decode", stderr)
	var common commonFlags
	common.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	settings, err := common.resolve()
	if err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("decode: no words given")
	}
	logger := settings.logger("decode")

	codec := tail.NewCodec(settings.Role)
	failed := 0
	for _, raw := range fs.Args() {
		res := decoded{Word: raw}
		t, err := decodeHex(codec, raw)
		if err != nil {
			failed++
			res.Error = err.Error()
			logger.Debug().Err(err).Str("word", raw).Msg("decode failed")
		} else {
			res.Tail = &t
		}
		if err := settings.print(stdout, res); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("decode: %d of %d words rejected", failed, fs.NArg())
	}
	return nil
}

func decodeHex(codec tail.Codec, raw string) (tail.Tail, error) {
	w, err := tail.ParseWord(raw)
	if err != nil {
		return tail.Tail{}, err
	}
	return codec.Decode(w)
}

type sysinfoReport struct {
	Words    int                `json:"words"`
	Rejected int                `json:"rejected"`
	Ignored  int                `json:"ignored"`
	Info     sysinfo.SystemInfo `json:"sysinfo"`
	SARIs    []tail.SARI        `json:"saris"`
}

func runSysinfo(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("sysinfo", stderr)
	var common commonFlags
	common.register(fs)
	trace := fs.String("trace", "", "file with one hex tail word per line")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *trace == "" {
		return errors.New("sysinfo: -trace is required")
	}
	settings, err := common.resolve()
	if err != nil {
		return err
	}
	logger := settings.logger("sysinfo")

	f, err := os.Open(*trace)
	if err != nil {
		return fmt.Errorf("sysinfo: %w", err)
	}
	defer f.Close()

	report, err := aggregateTrace(f, tail.NewCodec(settings.Role), logger)
	if err != nil {
		return fmt.Errorf("sysinfo: %w", err)
	}
	return settings.print(stdout, report)
}

// aggregateTrace feeds every Q tail of r into a fresh aggregator. Blank lines
// and lines starting with # are skipped; bad words are counted, not fatal.
func aggregateTrace(r io.Reader, codec tail.Codec, logger zerolog.Logger) (sysinfoReport, error) {
	agg := sysinfo.NewAggregator()
	var report sysinfoReport

	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		report.Words++
		t, err := decodeHex(codec, raw)
		if err != nil {
			report.Rejected++
			logger.Warn().Err(err).Int("line", line).Msg("trace word rejected")
			continue
		}
		if t.ID != tail.QT {
			report.Ignored++
			continue
		}
		if err := agg.Apply(t.Msg); err != nil {
			return sysinfoReport{}, err
		}
	}
	if err := sc.Err(); err != nil {
		return sysinfoReport{}, err
	}
	report.Info = agg.Snapshot()
	report.SARIs = report.Info.SARIList()
	return report, nil
}

func runServe(args []string, stderr io.Writer) error {
	fs := newFlagSet("serve", stderr)
	path := fs.String("config", "dectctl.toml", "serve config file (TOML)")
	addr := fs.String("addr", "", "status API listen address (overrides config)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.LoadServeConfig(*path)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	clusters, err := config.ClusterConfigs(cfg.Clusters)
	if err != nil {
		return err
	}

	logger := observability.InitLogger(cfg.Name)
	rt := cluster.NewRuntime(logger)
	for _, cc := range clusters {
		clusterLog := logger.With().Str("cluster", cc.Name).Logger()
		upper := dlc.NewLogUpper(clusterLog)
		if err := rt.Add(cluster.New(cc, mac.NewLogService(clusterLog), upper, logger)); err != nil {
			return err
		}
	}
	srv := server.New(cfg.Name, cfg.Addr, cfg.CorsOrigins, rt, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return rt.Run(ctx) })
	g.Go(func() error { return srv.Serve(ctx) })
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info().Msg("dectctl stopped")
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	return enc.Encode(v)
}
