/*
Copyright © 2024 the citygrid authors.
This file is part of citygrid.

citygrid is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

citygrid is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with citygrid.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package gridutil contains the command-line interface for the citygrid
// tools.
package gridutil

import (
	"fmt"
	"os"
	"time"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gonum.org/v1/plot/vg"
)

// Version is the version of the citygrid tools.
const Version = "0.1.0"

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "loglevel",
			usage: `
              loglevel sets the logging level: one of debug, info, warn, or error.`,
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Grid.PointFile",
			usage: `
              Grid.PointFile is the path to the GeoJSON (.geojson or .json) or
              shapefile (.shp) holding the point features to be gridded.
              It can include environment variables.`,
			defaultVal: "kiln_location.geojson",
			shorthand:  "i",
			flagsets:   []*pflag.FlagSet{gridCmd.Flags()},
		},
		{
			name: "Grid.Attributes",
			usage: `
              Grid.Attributes are the names of the point attributes to be summed
              in each grid cell. Every point must have every attribute. If empty,
              the numeric attributes of the first point are used.`,
			defaultVal: []string{"value"},
			flagsets:   []*pflag.FlagSet{gridCmd.Flags()},
		},
		{
			name: "Grid.CountAttribute",
			usage: `
              Grid.CountAttribute, if not empty, is the name of an attribute that
              is set to 1 for every point so that its grid cell sum is the number of
              points in the cell.`,
			defaultVal: "value",
			flagsets:   []*pflag.FlagSet{gridCmd.Flags()},
		},
		{
			name: "Grid.BoxSize",
			usage: `
              Grid.BoxSize is the edge length of the grid cells, in the units of the
              point coordinates.`,
			defaultVal: 0.1,
			shorthand:  "b",
			flagsets:   []*pflag.FlagSet{gridCmd.Flags()},
		},
		{
			name: "Grid.CRS",
			usage: `
              Grid.CRS, if not empty, overrides the coordinate reference system
              recorded in Grid.PointFile. It is copied to the output unchanged.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{gridCmd.Flags()},
		},
		{
			name: "Grid.FilterXMin",
			usage: `
              Grid.FilterXMin and Grid.FilterXMax, if Grid.FilterXMax is greater than
              Grid.FilterXMin, drop points that do not satisfy
              FilterXMin < X < FilterXMax before gridding.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{gridCmd.Flags()},
		},
		{
			name: "Grid.FilterXMax",
			usage: `
              Grid.FilterXMax: see Grid.FilterXMin.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{gridCmd.Flags()},
		},
		{
			name: "Grid.Workers",
			usage: `
              Grid.Workers is the number of goroutines to aggregate points with.
              One sums the points in input order. Larger values sum chunks of
              points in parallel, which can change the last digits of the sums
              but gives the same result for any number of workers greater than
              one. Zero means one per CPU.`,
			defaultVal: 1,
			flagsets:   []*pflag.FlagSet{gridCmd.Flags()},
		},
		{
			name: "Grid.OutputFile",
			usage: `
              Grid.OutputFile is the path to the output grid file. A .shp extension
              writes a shapefile; anything else writes GeoJSON.
              It can include environment variables.`,
			defaultVal: "grid_output.geojson",
			shorthand:  "o",
			flagsets:   []*pflag.FlagSet{gridCmd.Flags()},
		},
		{
			name: "City.GridDir",
			usage: `
              City.GridDir is the directory holding one GeoJSON grid map per city,
              named <city>.geojson. It can include environment variables.`,
			defaultVal: "city_grid_map",
			flagsets:   []*pflag.FlagSet{citiesCmd.Flags(), synthCmd.Flags()},
		},
		{
			name: "City.MappingFile",
			usage: `
              City.MappingFile is the path to a JSON or TOML file giving the province
              and region of each city. Cities that are not in it are labelled
              "Unknown". It can include environment variables.`,
			defaultVal: "city_mapping.json",
			flagsets:   []*pflag.FlagSet{citiesCmd.Flags()},
		},
		{
			name: "City.OutputSR",
			usage: `
              City.OutputSR is the coordinate reference system that city outputs are
              written in, as an EPSG code, PROJ4 string, or WKT.`,
			defaultVal: "EPSG:4326",
			flagsets:   []*pflag.FlagSet{citiesCmd.Flags(), synthCmd.Flags()},
		},
		{
			name: "City.CenterFile",
			usage: `
              City.CenterFile is the path to the output GeoJSON file of city centers.`,
			defaultVal: "city_center.geojson",
			flagsets:   []*pflag.FlagSet{citiesCmd.Flags()},
		},
		{
			name: "City.BoxFile",
			usage: `
              City.BoxFile is the path to the output GeoJSON file of city bounding boxes.`,
			defaultVal: "city_box.geojson",
			flagsets:   []*pflag.FlagSet{citiesCmd.Flags()},
		},
		{
			name: "City.FigureDir",
			usage: `
              City.FigureDir, if not empty, is a directory where a PNG map of each
              city is written.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{citiesCmd.Flags()},
		},
		{
			name: "City.BoundaryDir",
			usage: `
              City.BoundaryDir, if not empty, is a directory of city boundary
              GeoJSON files named <city>.geojson that are drawn under the grid
              in the city maps. Cities without a file are drawn without one.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{citiesCmd.Flags()},
		},
		{
			name: "Synth.OutputFile",
			usage: `
              Synth.OutputFile is the path to the output GeoJSON file of synthetic
              city populations.`,
			defaultVal: "city_population.geojson",
			flagsets:   []*pflag.FlagSet{synthCmd.Flags()},
		},
		{
			name: "Synth.Seed",
			usage: `
              Synth.Seed seeds the random number generator.`,
			defaultVal: 1,
			flagsets:   []*pflag.FlagSet{synthCmd.Flags()},
		},
		{
			name: "Synth.PopMin",
			usage: `
              Synth.PopMin is the smallest synthetic city population.`,
			defaultVal: 100000,
			flagsets:   []*pflag.FlagSet{synthCmd.Flags()},
		},
		{
			name: "Synth.PopMax",
			usage: `
              Synth.PopMax is one more than the largest synthetic city population.`,
			defaultVal: 1000000,
			flagsets:   []*pflag.FlagSet{synthCmd.Flags()},
		},
		{
			name: "Plot.InputFile",
			usage: `
              Plot.InputFile is the path to a GeoJSON grid file written by the grid command.`,
			defaultVal: "grid_output.geojson",
			flagsets:   []*pflag.FlagSet{plotCmd.Flags()},
		},
		{
			name: "Plot.Attribute",
			usage: `
              Plot.Attribute is the grid attribute to color cells by.`,
			defaultVal: "value",
			flagsets:   []*pflag.FlagSet{plotCmd.Flags()},
		},
		{
			name: "Plot.OutputFile",
			usage: `
              Plot.OutputFile is the path to the output PNG file.`,
			defaultVal: "grid_output.png",
			flagsets:   []*pflag.FlagSet{plotCmd.Flags()},
		},
		{
			name: "Plot.Width",
			usage: `
              Plot.Width is the width of PNG maps in inches.`,
			defaultVal: 6.0,
			flagsets:   []*pflag.FlagSet{plotCmd.Flags(), citiesCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("CITYGRID")

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch v := option.defaultVal.(type) {
			case string:
				set.StringP(option.name, option.shorthand, v, option.usage)
			case []string:
				set.StringSliceP(option.name, option.shorthand, v, option.usage)
			case int:
				set.IntP(option.name, option.shorthand, v, option.usage)
			case float64:
				set.Float64P(option.name, option.shorthand, v, option.usage)
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(gridCmd)
	Root.AddCommand(citiesCmd)
	Root.AddCommand(synthCmd)
	Root.AddCommand(plotCmd)
}

// setConfig finds and reads in the configuration file, if there is one,
// and sets up logging.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(os.ExpandEnv(cfgpath))
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("citygrid: problem reading configuration file: %w", err)
		}
	}
	level, err := logrus.ParseLevel(Cfg.GetString("loglevel"))
	if err != nil {
		return fmt.Errorf("citygrid: %w", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "citygrid",
	Short: "Tools for gridded city emissions data.",
	Long: `citygrid prepares geospatial datasets of Indian cities: it sums point
sources such as brick kilns onto regular grids, summarizes per-city grid maps
into city centers and bounding boxes, creates synthetic test data, and draws maps.

Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'CITYGRID_var' where 'var' is the
name of the variable to be set. File paths may contain environment variables.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
	SilenceUsage:      true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of citygrid.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("citygrid v%s\n", Version)
	},
	DisableAutoGenTag: true,
}

// gridCmd sums point attributes onto a regular grid.
var gridCmd = &cobra.Command{
	Use:   "grid",
	Short: "Sum point attributes onto a regular grid",
	Long: `grid reads point features, assigns each one to the square grid cell
of edge length Grid.BoxSize that contains it, and writes one polygon per
non-empty cell holding the sum of each attribute over the cell's points.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := Grid(logrus.StandardLogger(),
			os.ExpandEnv(Cfg.GetString("Grid.PointFile")),
			Cfg.GetStringSlice("Grid.Attributes"),
			Cfg.GetString("Grid.CountAttribute"),
			Cfg.GetFloat64("Grid.BoxSize"),
			Cfg.GetString("Grid.CRS"),
			Cfg.GetFloat64("Grid.FilterXMin"),
			Cfg.GetFloat64("Grid.FilterXMax"),
			Cfg.GetInt("Grid.Workers"),
			os.ExpandEnv(Cfg.GetString("Grid.OutputFile")),
		)
		return err
	},
	DisableAutoGenTag: true,
}

// citiesCmd summarizes city grid maps.
var citiesCmd = &cobra.Command{
	Use:   "cities",
	Short: "Compute city centers and bounding boxes",
	Long: `cities reads the grid map of each city in City.GridDir and writes the
center and bounding box of the union of each city's grid cells, labelled
with the city's province and region.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := Cities(logrus.StandardLogger(),
			os.ExpandEnv(Cfg.GetString("City.GridDir")),
			os.ExpandEnv(Cfg.GetString("City.MappingFile")),
			Cfg.GetString("City.OutputSR"),
			os.ExpandEnv(Cfg.GetString("City.CenterFile")),
			os.ExpandEnv(Cfg.GetString("City.BoxFile")),
			os.ExpandEnv(Cfg.GetString("City.FigureDir")),
			os.ExpandEnv(Cfg.GetString("City.BoundaryDir")),
			vg.Length(Cfg.GetFloat64("Plot.Width"))*vg.Inch,
		)
		return err
	},
	DisableAutoGenTag: true,
}

// synthCmd creates synthetic city population data.
var synthCmd = &cobra.Command{
	Use:   "synth",
	Short: "Create a synthetic city population dataset",
	Long: `synth writes one point per city in City.GridDir, at the middle of the
city's grid, with a random population between Synth.PopMin and Synth.PopMax.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		seed, err := cast.ToUint64E(Cfg.Get("Synth.Seed"))
		if err != nil {
			return fmt.Errorf("citygrid: Synth.Seed: %w", err)
		}
		_, err = Synth(logrus.StandardLogger(),
			os.ExpandEnv(Cfg.GetString("City.GridDir")),
			Cfg.GetString("City.OutputSR"),
			os.ExpandEnv(Cfg.GetString("Synth.OutputFile")),
			seed,
			Cfg.GetInt("Synth.PopMin"),
			Cfg.GetInt("Synth.PopMax"),
		)
		return err
	},
	DisableAutoGenTag: true,
}

// plotCmd draws a grid file.
var plotCmd = &cobra.Command{
	Use:   "plot",
	Short: "Draw a grid map",
	Long:  `plot draws the cells of a grid file colored by an attribute and saves it as a PNG.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return Plot(logrus.StandardLogger(),
			os.ExpandEnv(Cfg.GetString("Plot.InputFile")),
			Cfg.GetString("Plot.Attribute"),
			os.ExpandEnv(Cfg.GetString("Plot.OutputFile")),
			vg.Length(Cfg.GetFloat64("Plot.Width"))*vg.Inch,
		)
	},
	DisableAutoGenTag: true,
}
