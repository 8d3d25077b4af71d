package config

import (
	"flag"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/berlinopendata/poisync/geom/layer"
	"github.com/berlinopendata/poisync/reader"
)

// Config is the content of the optional YAML config file. Options from
// the command line take precedence.
type Config struct {
	Connection    string      `yaml:"connection"`
	MappingFile   string      `yaml:"mapping"`
	SourceDir     string      `yaml:"sourcedir"`
	OutDir        string      `yaml:"outdir"`
	Schema        string      `yaml:"dbschema"`
	Reference     string      `yaml:"reference"`
	Ambiguous     string      `yaml:"ambiguous"`
	Districts     LayerConfig `yaml:"districts"`
	Neighborhoods LayerConfig `yaml:"neighborhoods"`
}

type LayerConfig struct {
	File     string `yaml:"file"`
	NameAttr string `yaml:"name"`
	KeyAttr  string `yaml:"key"`
}

const defaultSourceDir = "sources"
const defaultSchema = "public"
const defaultDistrictsFile = "berlin_districts.geojson"
const defaultNeighborhoodsFile = "berlin_neighborhood.geojson"
const defaultDistrictName = "Gemeinde_name"
const defaultDistrictKey = "Schluessel_gesamt"
const defaultNeighborhoodName = "spatial_name"
const defaultEnvFile = ".env"

// Environment variables for the connection, checked in this order.
var connectionEnv = []string{"POISYNC_CONNECTION", "DATABASE_URL"}

type Options struct {
	Connection    string
	ConfigFile    string
	EnvFile       string
	MappingFile   string
	Feed          string
	SourceDir     string
	Snapshot      string
	Read          string
	Districts     LayerConfig
	Neighborhoods LayerConfig
	Reference     string
	Schema        string
	OutDir        string
	Write         bool
	Ambiguous     string
	Quiet         bool
	Verbose       bool
}

func NewFlagSet(o *Options) *flag.FlagSet {
	flags := flag.NewFlagSet("import", flag.ContinueOnError)
	flags.StringVar(&o.Connection, "connection", "", "connection parameters (default from $POISYNC_CONNECTION or $DATABASE_URL)")
	flags.StringVar(&o.ConfigFile, "config", "", "config (yaml)")
	flags.StringVar(&o.EnvFile, "envfile", defaultEnvFile, "file with environment variables, ignored if missing")
	flags.StringVar(&o.MappingFile, "mapping", "", "feed mapping file (default built-in mapping)")
	flags.StringVar(&o.Feed, "feed", "gyms", "feed to import")
	flags.StringVar(&o.SourceDir, "sourcedir", "", "directory with snapshots and polygon layers (default "+defaultSourceDir+")")
	flags.StringVar(&o.Snapshot, "snapshot", "", "snapshot date (YYYY-MM-DD)")
	flags.StringVar(&o.Read, "read", "", "read snapshot from file (.csv or .pbf) instead of -snapshot")
	flags.StringVar(&o.Districts.File, "districts", "", "district layer (geojson)")
	flags.StringVar(&o.Neighborhoods.File, "neighborhoods", "", "neighborhood layer (geojson)")
	flags.StringVar(&o.Districts.NameAttr, "district-name", "", "name attribute of districts (default "+defaultDistrictName+")")
	flags.StringVar(&o.Districts.KeyAttr, "district-key", "", "key attribute of districts (default "+defaultDistrictKey+")")
	flags.StringVar(&o.Neighborhoods.NameAttr, "neighborhood-name", "", "name attribute of neighborhoods (default "+defaultNeighborhoodName+")")
	flags.StringVar(&o.Reference, "reference", "", "district reference table (csv) instead of the districts table")
	flags.StringVar(&o.Schema, "dbschema", "", "db schema (default "+defaultSchema+")")
	flags.StringVar(&o.OutDir, "outdir", "", "directory for derived files (default -sourcedir)")
	flags.BoolVar(&o.Write, "write", false, "replace database table")
	flags.StringVar(&o.Ambiguous, "ambiguous", "", "points in overlapping polygons: smallest or reject (default smallest)")
	flags.BoolVar(&o.Quiet, "quiet", false, "quiet log output")
	flags.BoolVar(&o.Verbose, "verbose", false, "debug log output")
	return flags
}

func (o *Options) updateFromConfig() error {
	conf := &Config{}

	if o.ConfigFile != "" {
		data, err := ioutil.ReadFile(o.ConfigFile)
		if err != nil {
			return err
		}
		if err := yaml.Unmarshal(data, conf); err != nil {
			return errors.Wrapf(err, "parsing %s", o.ConfigFile)
		}
	}

	if o.Connection == "" {
		o.Connection = conf.Connection
	}
	if o.MappingFile == "" {
		o.MappingFile = conf.MappingFile
	}
	o.SourceDir = first(o.SourceDir, conf.SourceDir, defaultSourceDir)
	o.OutDir = first(o.OutDir, conf.OutDir, o.SourceDir)
	o.Schema = first(o.Schema, conf.Schema, defaultSchema)
	o.Reference = first(o.Reference, conf.Reference)
	o.Ambiguous = first(o.Ambiguous, conf.Ambiguous, layer.Smallest.String())

	o.Districts.File = first(o.Districts.File, conf.Districts.File, filepath.Join(o.SourceDir, defaultDistrictsFile))
	o.Districts.NameAttr = first(o.Districts.NameAttr, conf.Districts.NameAttr, defaultDistrictName)
	o.Districts.KeyAttr = first(o.Districts.KeyAttr, conf.Districts.KeyAttr, defaultDistrictKey)
	o.Neighborhoods.File = first(o.Neighborhoods.File, conf.Neighborhoods.File, filepath.Join(o.SourceDir, defaultNeighborhoodsFile))
	o.Neighborhoods.NameAttr = first(o.Neighborhoods.NameAttr, conf.Neighborhoods.NameAttr, defaultNeighborhoodName)
	return nil
}

// updateFromEnv loads the env file and takes the connection from the
// environment if it is not set otherwise. Variables that are already
// set are not overwritten by the env file.
func (o *Options) updateFromEnv() error {
	if o.EnvFile != "" {
		if _, err := os.Stat(o.EnvFile); err == nil {
			if err := godotenv.Load(o.EnvFile); err != nil {
				return errors.Wrapf(err, "loading %s", o.EnvFile)
			}
		} else if o.EnvFile != defaultEnvFile {
			return err
		}
	}
	if o.Connection != "" {
		return nil
	}
	for _, env := range connectionEnv {
		if v := os.Getenv(env); v != "" {
			o.Connection = v
			return nil
		}
	}
	return nil
}

func (o *Options) check() []error {
	errs := []error{}
	if o.Feed == "" {
		errs = append(errs, errors.New("missing -feed"))
	}
	if o.Read == "" && o.Snapshot == "" {
		errs = append(errs, errors.New("missing -snapshot or -read"))
	}
	if o.Read != "" && o.Snapshot != "" {
		errs = append(errs, errors.New("-snapshot and -read are exclusive"))
	}
	if o.Snapshot != "" {
		if err := reader.ValidSnapshot(o.Snapshot); err != nil {
			errs = append(errs, err)
		}
	}
	if _, err := layer.ParsePolicy(o.Ambiguous); err != nil {
		errs = append(errs, err)
	}
	if o.Write && o.Connection == "" {
		errs = append(errs, errors.New("-write requires -connection"))
	}
	if o.Quiet && o.Verbose {
		errs = append(errs, errors.New("-quiet and -verbose are exclusive"))
	}
	return errs
}

// ParseImport parses the command line arguments, the config file and
// the environment.
func ParseImport(args []string) (*Options, error) {
	o := &Options{}
	flags := NewFlagSet(o)
	flags.Usage = func() {
		fmt.Fprintf(flags.Output(), "Usage: %s import [args]\n\n", filepath.Base(os.Args[0]))
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		return nil, err
	}
	if flags.NArg() > 0 {
		return nil, errors.Errorf("unexpected arguments %v", flags.Args())
	}
	if err := o.updateFromConfig(); err != nil {
		return nil, err
	}
	if err := o.updateFromEnv(); err != nil {
		return nil, err
	}
	if errs := o.check(); len(errs) != 0 {
		return nil, &OptionsError{errs}
	}
	return o, nil
}

// OptionsError contains all errors in config and options.
type OptionsError struct {
	Errs []error
}

func (e *OptionsError) Error() string {
	msg := "errors in config/options:"
	for _, err := range e.Errs {
		msg += "\n\t" + err.Error()
	}
	return msg
}

func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
