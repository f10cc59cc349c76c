package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"fleetsim/internal/factories"
	"fleetsim/internal/loader"
	"fleetsim/internal/models"
	"fleetsim/internal/output"
	"fleetsim/internal/simulator"
	"fleetsim/internal/store"
)

var (
	cfgFile        string
	nonInteractive bool
)

var rootCmd = &cobra.Command{
	Use:   "fleetsim",
	Short: "Simulates a one-day parcel delivery fleet",
	Long: `fleetsim loads a package manifest and a distance table, partitions the
packages onto trucks under their note constraints, routes each truck, and
replays the day minute by minute. The finished run can be queried from an
interactive prompt and streamed to console, files, Kafka or Postgres.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := models.LoadConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("error loading config: %w", err)
		}
		sim, err := buildAndRun(cfg)
		if err != nil {
			return err
		}

		dest := sim.DetermineOutputDestination()
		if err := sim.Stream(dest, !nonInteractive); err != nil {
			return fmt.Errorf("error streaming events: %w", err)
		}
		if err := dest.Close(); err != nil {
			return fmt.Errorf("error closing output: %w", err)
		}

		if cfg.PostgresEnabled {
			if err := persistRun(cfg, sim); err != nil {
				return err
			}
		}

		report, err := sim.Report()
		if err != nil {
			return err
		}
		fmt.Print(simulator.FormatReport(report))

		if !nonInteractive {
			runMenu(sim, os.Stdin)
		}
		return nil
	},
}

func buildAndRun(cfg *models.Config) (*simulator.Simulator, error) {
	if cfg.DistancesFile == "" {
		return nil, fmt.Errorf("a distances file is required")
	}
	graph, err := loader.LoadDistances(cfg.DistancesFile)
	if err != nil {
		return nil, fmt.Errorf("error loading distances: %w", err)
	}

	dayStart, err := cfg.DayStartTime()
	if err != nil {
		return nil, err
	}

	var packages []*models.Package
	switch {
	case cfg.PackagesFile != "":
		packages, err = loader.LoadPackages(cfg.PackagesFile, dayStart)
		if err != nil {
			return nil, fmt.Errorf("error loading packages: %w", err)
		}
	case cfg.SyntheticPackages > 0:
		factory := factories.NewPackageFactory(cfg.Seed)
		packages = factory.CreatePackages(cfg.SyntheticPackages, graph, dayStart)
	default:
		return nil, fmt.Errorf("either a packages file or --synthetic-packages is required")
	}
	loader.ResolveLocations(packages, graph)

	st := store.New(cfg.StoreBuckets)
	for _, p := range packages {
		st.Put(p.ID, p)
	}

	sim, err := simulator.NewSimulator(cfg, st, graph)
	if err != nil {
		return nil, err
	}
	if err := sim.Run(); err != nil {
		return nil, fmt.Errorf("simulation failed: %w", err)
	}
	return sim, nil
}

func persistRun(cfg *models.Config, sim *simulator.Simulator) error {
	ctx := context.Background()
	pg, err := output.NewPostgresOutput(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("error connecting to Postgres: %w", err)
	}
	defer pg.Close()

	if err := pg.EnsureSchema(ctx); err != nil {
		return err
	}
	if err := sim.Stream(pg, false); err != nil {
		return fmt.Errorf("error persisting events: %w", err)
	}
	var packages []*models.Package
	it := sim.Store.All()
	for {
		p, ok := it.Next()
		if !ok {
			break
		}
		packages = append(packages, p)
	}
	if err := pg.BatchInsertResults(ctx, sim.RunID, packages); err != nil {
		return fmt.Errorf("error persisting package results: %w", err)
	}
	return nil
}

// runMenu is the interactive query loop over a finished run.
func runMenu(sim *simulator.Simulator, in *os.File) {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Println()
		fmt.Println("1. Look up a package at a time")
		fmt.Println("2. Show all packages at a time")
		fmt.Println("3. Show hash table buckets")
		fmt.Println("4. Show completion report")
		fmt.Println("5. Exit")
		fmt.Print("> ")

		if !scanner.Scan() {
			return
		}
		switch strings.TrimSpace(scanner.Text()) {
		case "1":
			id, ok := promptInt(scanner, "Package ID: ")
			if !ok {
				continue
			}
			at, ok := promptClock(scanner, sim.DayStart)
			if !ok {
				continue
			}
			status, err := sim.StatusAt(id, at)
			if err != nil {
				fmt.Printf("error: %v\n", err)
				continue
			}
			printStatus(status)
		case "2":
			at, ok := promptClock(scanner, sim.DayStart)
			if !ok {
				continue
			}
			for _, status := range sim.AllStatusesAt(at) {
				printStatus(status)
			}
		case "3":
			n, ok := promptInt(scanner, "How many buckets: ")
			if !ok {
				continue
			}
			for i, bucket := range sim.Store.BucketSnapshot(n) {
				fmt.Printf("bucket %d: %v\n", i, bucket)
			}
		case "4":
			report, err := sim.Report()
			if err != nil {
				fmt.Printf("error: %v\n", err)
				continue
			}
			fmt.Print(simulator.FormatReport(report))
		case "5":
			return
		default:
			fmt.Println("unknown option")
		}
	}
}

func promptInt(scanner *bufio.Scanner, prompt string) (int, bool) {
	fmt.Print(prompt)
	if !scanner.Scan() {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	if err != nil {
		fmt.Printf("not a number: %q\n", scanner.Text())
		return 0, false
	}
	return n, true
}

func promptClock(scanner *bufio.Scanner, day time.Time) (time.Time, bool) {
	fmt.Print("Time (HH:MM): ")
	if !scanner.Scan() {
		return time.Time{}, false
	}
	t, err := time.Parse("15:04", strings.TrimSpace(scanner.Text()))
	if err != nil {
		fmt.Printf("not a clock time: %q\n", scanner.Text())
		return time.Time{}, false
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, day.Location()), true
}

func printStatus(s simulator.PackageStatus) {
	deadline := "EOD"
	if s.Deadline != nil {
		deadline = s.Deadline.Format("15:04")
	}
	line := fmt.Sprintf("package %d  %-40s  due %-5s  %s", s.PackageID, s.Address, deadline, s.Status)
	if s.TruckID > 0 {
		line += fmt.Sprintf("  truck %d", s.TruckID)
	}
	if s.DeliveredAt != nil {
		line += fmt.Sprintf("  at %s", s.DeliveredAt.Format("15:04"))
	}
	fmt.Println(line)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is examples/config.json)")
	rootCmd.Flags().BoolVar(&nonInteractive, "non-interactive", false, "Skip the interactive query menu")

	rootCmd.Flags().Int("seed", 42, "Random seed for synthetic data")
	rootCmd.Flags().String("start-date", time.Now().Format(time.RFC3339), "Date the simulated day falls on")
	rootCmd.Flags().String("day-start", "08:00", "Time the hub opens (HH:MM)")
	rootCmd.Flags().Float64("speed-mph", models.DefaultSpeedMPH, "Average truck speed")
	rootCmd.Flags().Int("truck-capacity", models.DefaultTruckCapacity, "Packages per truck")
	rootCmd.Flags().Int("truck-count", models.DefaultTruckCount, "Number of trucks")
	rootCmd.Flags().Int("driver-count", models.DefaultDriverCount, "Number of drivers")
	rootCmd.Flags().Int("two-opt-limit", models.DefaultTwoOptLimit, "Max accepted 2-opt reversals per route")
	rootCmd.Flags().Int("store-buckets", models.DefaultStoreBuckets, "Hash table bucket count")
	rootCmd.Flags().String("packages-file", "", "Package manifest CSV")
	rootCmd.Flags().String("distances-file", "", "Distance table CSV")
	rootCmd.Flags().Int("synthetic-packages", 0, "Generate this many synthetic packages instead of a manifest")
	rootCmd.Flags().String("output-path", "", "Base path for file output")
	rootCmd.Flags().String("output-folder", "events", "Folder under the output path")
	rootCmd.Flags().String("output-format", "console", "Output format: console, csv, json or parquet")
	rootCmd.Flags().Bool("kafka-enabled", false, "Enable Kafka output")
	rootCmd.Flags().String("kafka-broker-list", "localhost:9092", "Kafka broker list")
	rootCmd.Flags().Bool("postgres-enabled", false, "Persist the run to Postgres")

	flags := rootCmd.Flags()
	viper.BindPFlag("seed", flags.Lookup("seed"))
	viper.BindPFlag("start_date", flags.Lookup("start-date"))
	viper.BindPFlag("day_start", flags.Lookup("day-start"))
	viper.BindPFlag("speed_mph", flags.Lookup("speed-mph"))
	viper.BindPFlag("truck_capacity", flags.Lookup("truck-capacity"))
	viper.BindPFlag("truck_count", flags.Lookup("truck-count"))
	viper.BindPFlag("driver_count", flags.Lookup("driver-count"))
	viper.BindPFlag("two_opt_limit", flags.Lookup("two-opt-limit"))
	viper.BindPFlag("store_buckets", flags.Lookup("store-buckets"))
	viper.BindPFlag("packages_file", flags.Lookup("packages-file"))
	viper.BindPFlag("distances_file", flags.Lookup("distances-file"))
	viper.BindPFlag("synthetic_packages", flags.Lookup("synthetic-packages"))
	viper.BindPFlag("output_path", flags.Lookup("output-path"))
	viper.BindPFlag("output_folder", flags.Lookup("output-folder"))
	viper.BindPFlag("output_format", flags.Lookup("output-format"))
	viper.BindPFlag("kafka_enabled", flags.Lookup("kafka-enabled"))
	viper.BindPFlag("kafka_broker_list", flags.Lookup("kafka-broker-list"))
	viper.BindPFlag("postgres_enabled", flags.Lookup("postgres-enabled"))
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
