package main

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/theapemachine/qsim"
	"github.com/theapemachine/qsim/circuitio"
	"github.com/theapemachine/qsim/circuits"
	"github.com/theapemachine/qsim/gates"
)

// runFlags are the execution flags shared by run and demo.
type runFlags struct {
	shots  int
	seed   uint64
	mode   string
	memory bool
	output string
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.shots, "shots", 1024, "number of shots in sample mode")
	cmd.Flags().Uint64Var(&f.seed, "seed", 0, "seed for reproducible counts (default from config, else random)")
	cmd.Flags().StringVar(&f.mode, "mode", "sample", "sample, statevector or unitary")
	cmd.Flags().BoolVar(&f.memory, "memory", false, "record the bitstring of every shot")
	cmd.Flags().StringVarP(&f.output, "output", "o", "auto", "auto, table, json or yaml")
}

func (f *runFlags) options(cmd *cobra.Command) ([]qsim.RunOption, error) {
	mode, err := qsim.ParseMode(f.mode)
	if err != nil {
		return nil, err
	}

	opts := []qsim.RunOption{qsim.WithMode(mode), qsim.WithShots(f.shots)}
	if cmd.Flags().Changed("seed") {
		opts = append(opts, qsim.WithSeed(f.seed))
	}
	if f.memory {
		opts = append(opts, qsim.WithMemory())
	}
	return opts, nil
}

func (a *app) execute(cmd *cobra.Command, c *qsim.Circuit, f *runFlags) (*qsim.Result, error) {
	opts, err := f.options(cmd)
	if err != nil {
		return nil, err
	}

	res, err := a.sim.Execute(cmd.Context(), c, opts...)
	if err != nil {
		return nil, err
	}

	if err := a.printResult(cmd.OutOrStdout(), res, f.output); err != nil {
		return nil, err
	}
	return res, nil
}

func (a *app) runCmd() *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Execute a circuit file (.yaml, .yml, .json or .qasm)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := circuitio.Load(args[0], circuitio.WithTolerance(a.config.Tolerance))
			if err != nil {
				return err
			}
			a.logger.Debug("loaded circuit", "name", c.Name, "qubits", c.NumQubits, "clbits", c.NumClbits, "ops", len(c.Ops))

			_, err = a.execute(cmd, c, &f)
			return err
		},
	}

	f.register(cmd)
	return cmd
}

var demos = []string{"bell", "ghz", "qft", "teleport", "grover", "bb84"}

func (a *app) demoCmd() *cobra.Command {
	var (
		f      runFlags
		qubits int
		marked int
		theta  float64
		phi    float64
	)

	cmd := &cobra.Command{
		Use:       "demo <" + strings.Join(demos, "|") + ">",
		Short:     "Run one of the built-in example circuits",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: demos,
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] == "bb84" {
				return a.bb84(cmd, &f, qubits)
			}

			var (
				c   *qsim.Circuit
				err error
			)
			switch args[0] {
			case "bell":
				c, err = circuits.Bell()
			case "ghz":
				c, err = circuits.GHZ(qubits)
			case "qft":
				c, err = circuits.QFT(qubits)
			case "grover":
				c, err = circuits.Grover(qubits, marked)
			case "teleport":
				c, err = circuits.Teleport(theta, phi)
			}
			if err != nil {
				return err
			}

			mode, err := qsim.ParseMode(f.mode)
			if err != nil {
				return err
			}
			if mode == qsim.ModeSample && !c.HasMeasurements() {
				if c, err = circuits.Measured(c); err != nil {
					return err
				}
			}

			_, err = a.execute(cmd, c, &f)
			return err
		},
	}

	f.register(cmd)
	cmd.Flags().IntVarP(&qubits, "qubits", "n", 3, "register size for ghz, qft, grover and bb84")
	cmd.Flags().IntVar(&marked, "marked", 5, "basis state grover searches for")
	cmd.Flags().Float64Var(&theta, "theta", 1.0, "polar angle of the teleported state")
	cmd.Flags().Float64Var(&phi, "phi", 0.5, "azimuthal angle of the teleported state")
	return cmd
}

/*
bb84 draws Alice's bits and both parties' bases from the run seed, sends
them through one shot of the exchange and prints the sifted keys.
*/
func (a *app) bb84(cmd *cobra.Command, f *runFlags, n int) error {
	seed := f.seed
	if !cmd.Flags().Changed("seed") {
		seed = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(seed, 84))

	bits, aliceBases, bobBases := make([]int, n), make([]int, n), make([]int, n)
	for i := 0; i < n; i++ {
		bits[i], aliceBases[i], bobBases[i] = rng.IntN(2), rng.IntN(2), rng.IntN(2)
	}

	c, err := circuits.BB84(bits, aliceBases, bobBases)
	if err != nil {
		return err
	}

	f.shots = 1
	f.seed = seed
	if err := cmd.Flags().Set("seed", fmt.Sprint(seed)); err != nil {
		return err
	}
	res, err := a.execute(cmd, c, f)
	if err != nil {
		return err
	}

	received, _ := res.Counts.MostFrequent()
	bobKey, err := circuits.Sift(received, aliceBases, bobBases)
	if err != nil {
		return err
	}

	var aliceKey []int
	for i := range bits {
		if aliceBases[i] == bobBases[i] {
			aliceKey = append(aliceKey, bits[i])
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "alice bases: %v\nbob bases:   %v\n", aliceBases, bobBases)
	fmt.Fprintf(out, "alice key:   %v\nbob key:     %v\n", aliceKey, bobKey)
	fmt.Fprintf(out, "keys agree:  %t\n", fmt.Sprint(aliceKey) == fmt.Sprint(bobKey))
	return nil
}

func (a *app) gatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gates",
		Short: "List the named gates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := make([][]string, 0)
			for _, name := range gates.Names() {
				d, _ := gates.Get(name)
				rows = append(rows, []string{d.Name, fmt.Sprint(d.Qubits), fmt.Sprint(d.Params), d.Doc})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"GATE", "QUBITS", "PARAMS", "DESCRIPTION"}, rows))
			return nil
		},
	}
}

func (a *app) benchCmd() *cobra.Command {
	var (
		qubits int
		repeat int
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Time the statevector of an n-qubit QFT",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := circuits.QFT(qubits)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, repeat)
			var total, best time.Duration
			for i := 0; i < repeat; i++ {
				start := time.Now()
				if _, err := a.sim.Statevector(cmd.Context(), c); err != nil {
					return err
				}
				elapsed := time.Since(start)

				total += elapsed
				if best == 0 || elapsed < best {
					best = elapsed
				}
				rows = append(rows, []string{fmt.Sprint(i + 1), elapsed.String()})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]string{"RUN", "ELAPSED"}, rows))
			if repeat > 0 {
				fmt.Fprintf(out, "qft_%d: %d gates, best %v, mean %v\n", qubits, len(c.Ops), best, total/time.Duration(repeat))
			}

			a.logger.Debug("bench finished", "metrics", a.metrics.ExportMetrics())
			return nil
		},
	}

	cmd.Flags().IntVarP(&qubits, "qubits", "n", 16, "number of qubits")
	cmd.Flags().IntVarP(&repeat, "repeat", "r", 3, "number of repetitions")
	return cmd
}
