// Opgateway explores facility records, loaded from local NDJSON files or fetched from a records api.
package main

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	tea "charm.land/bubbletea/v2"
	"github.com/clarktrimble/sabot"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"

	"opgateway"
	nt "opgateway/entity"
	"opgateway/store/api"
	"opgateway/store/duck"
	"opgateway/util"
)

//go:embed sample.yaml
var sample []byte

type Config struct {
	Log     string             `yaml:"log"`
	MaxLen  int                `yaml:"max_len"`
	Source  string             `yaml:"source"`
	Api     *api.Config        `yaml:"api"`
	Options opgateway.Options  `yaml:"options"`
}

func main() {

	flags := pflag.NewFlagSet("opgateway", pflag.ExitOnError)
	cfgPath := flags.StringP("config", "c", "opgateway.yaml", "config file")
	source := flags.StringP("source", "s", "", "glob of NDJSON record files, overrides config")
	apiUrl := flags.StringP("api", "a", "", "records api url, overrides config")
	writeSample := flags.Bool("sample", false, "write a sample config and exit")
	flags.Parse(os.Args[1:])

	if *writeSample {
		check(util.SampleConfig(sample, *cfgPath, 0644))
		fmt.Printf("sample config at %s\n", *cfgPath)
		return
	}

	cfg := &Config{}
	err := util.LoadConfig(cfg, *cfgPath)
	if err != nil && (*source == "" && *apiUrl == "") {
		check(err)
	}
	if *source != "" {
		cfg.Source = *source
		cfg.Api = nil
	}
	if *apiUrl != "" {
		if cfg.Api == nil {
			cfg.Api = &api.Config{}
		}
		cfg.Api.Url = *apiUrl
	}

	logFile := util.OpenLog(cfg.Log, 0644)
	defer util.CloseLog(logFile)
	lgr := &sabot.Sabot{Writer: logFile, MaxLen: cfg.MaxLen}

	ctx := context.Background()
	lgr.Info(ctx, "opgateway starting", "config", *cfgPath)

	store, closer, err := openStore(ctx, cfg, lgr)
	check(err)
	defer closer()

	model, err := opgateway.NewModel(ctx, store, cfg.Options, lgr)
	check(err)

	_, err = tea.NewProgram(model).Run()
	if err != nil {
		lgr.Error(ctx, "program failed", err)
		check(err)
	}
	lgr.Info(ctx, "opgateway stopped")
}

func openStore(ctx context.Context, cfg *Config, lgr nt.Logger) (store opgateway.Store, closer func(), err error) {

	closer = func() {}

	if cfg.Api != nil && cfg.Api.Url != "" {
		store, err = cfg.Api.New(lgr)
		return
	}

	if cfg.Source == "" {
		err = errors.New("no record source, set source or api url")
		return
	}

	dk, err := duck.New(lgr)
	if err != nil {
		return
	}

	err = dk.Load(cfg.Source)
	if err != nil {
		dk.Close()
		return
	}

	lgr.Info(ctx, "records loaded", "source", cfg.Source)
	store, closer = dk, dk.Close
	return
}

func check(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %+v\n", err)
		os.Exit(1)
	}
}
