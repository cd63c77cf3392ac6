// Command orq-cli is a thin entry point for exercising the oblivious
// relational engine locally: it runs a query across an in-process,
// three-party honest-majority cluster, the way the teacher's
// cmd/threshold-cli subcommands exercised keygen/sign/reshare against
// a simulated local party set.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/luxfi/orq/internal/config"
	"github.com/luxfi/orq/pkg/aggregate"
	"github.com/luxfi/orq/pkg/party"
	"github.com/luxfi/orq/pkg/perm"
	"github.com/luxfi/orq/pkg/protocol"
	"github.com/luxfi/orq/pkg/table"
	"github.com/luxfi/orq/pkg/telemetry"
	"github.com/luxfi/orq/pkg/vector"
)

var (
	inputFile    string
	outputFile   string
	groupByCol   string
	sumCol       string
	filterCol    string
	permSeed     int64
	partyCount   int
	benchRows    int
	benchWorkers int

	rootCmd = &cobra.Command{
		Use:   "orq-cli",
		Short: "CLI for the oblivious relational query engine",
		Long:  `A CLI for ingesting, running, and exporting secret-shared relational queries against an in-process simulated party cluster.`,
	}

	ingestCmd = &cobra.Command{
		Use:   "ingest",
		Short: "Secret-share a CSV file and report its row/column shape",
		RunE:  runIngest,
	}

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run a filter -> sort -> group-by sum -> compact demo pipeline over a CSV file",
		RunE:  runPipeline,
	}

	exportCmd = &cobra.Command{
		Use:   "export",
		Short: "Re-open a CSV file's ingested contents and write them back out",
		RunE:  runExport,
	}

	benchCmd = &cobra.Command{
		Use:   "bench",
		Short: "Time one secret-share, add, open sequence over synthetic rows",
		RunE:  runBench,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&inputFile, "input", "", "input CSV file")
	rootCmd.PersistentFlags().StringVar(&outputFile, "output", "", "output CSV file")
	rootCmd.PersistentFlags().Int64Var(&permSeed, "perm-seed", 1, "permutation manager seed")

	runCmd.Flags().StringVar(&groupByCol, "group-by", "", "column to group by")
	runCmd.Flags().StringVar(&sumCol, "sum", "", "column to sum per group")
	runCmd.Flags().StringVar(&filterCol, "filter", "", "0/1 column used as the filter predicate")

	benchCmd.Flags().IntVar(&benchRows, "rows", 1 << 16, "number of synthetic rows")
	benchCmd.Flags().IntVar(&benchWorkers, "workers", 4, "worker count")

	rootCmd.AddCommand(ingestCmd, runCmd, exportCmd, benchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// localCluster builds an in-process three-party honest-majority
// cluster (spec.md's reference protocol), the owner party by
// convention the alphabetically-first id.
func localCluster() (party.IDSlice, [3]*protocol.Replicated3[uint32], error) {
	ids := [3]party.ID{"alice", "bob", "carol"}
	seed := [32]byte{}
	copy(seed[:], "orq-cli local simulated cluster")
	engines, err := protocol.NewReplicated3Cluster[uint32](ids, seed)
	if err != nil {
		return nil, [3]*protocol.Replicated3[uint32]{}, err
	}
	return party.IDSlice{ids[0], ids[1], ids[2]}, engines, nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	if inputFile == "" {
		return fmt.Errorf("orq-cli: --input is required")
	}
	parties, engines, err := localCluster()
	if err != nil {
		return err
	}
	cfg := config.Default(parties[0], parties, permSeed)
	if err := cfg.Validate(); err != nil {
		return err
	}

	f, err := os.Open(inputFile)
	if err != nil {
		return err
	}
	defer f.Close()

	tb, err := table.ReadCSVFile(engines[0], f, parties[0])
	if err != nil {
		return err
	}
	fmt.Printf("ingested %d rows, %d columns\n", tb.Rows(), len(tb.Columns))
	return nil
}

func runPipeline(cmd *cobra.Command, args []string) error {
	if inputFile == "" || outputFile == "" {
		return fmt.Errorf("orq-cli: --input and --output are required")
	}
	parties, engines, err := localCluster()
	if err != nil {
		return err
	}
	eng := engines[0]

	f, err := os.Open(inputFile)
	if err != nil {
		return err
	}
	defer f.Close()
	tb, err := table.ReadCSVFile(eng, f, parties[0])
	if err != nil {
		return err
	}

	mgr := perm.NewManager(permSeed)
	mgr.Reserve(nextPowerOfTwo(tb.Rows()), 4, perm.HonestMajority)

	if filterCol != "" {
		col, err := tb.Column(filterCol)
		if err != nil {
			return err
		}
		if err := tb.Filter(eng, col.Data); err != nil {
			return err
		}
	}
	if groupByCol != "" && sumCol != "" {
		if err := tb.PadPowerOfTwo(); err != nil {
			return err
		}
		if err := tb.Sort(eng, mgr, groupByCol); err != nil {
			return err
		}
		if err := tb.Aggregate(eng, groupByCol, []aggregate.AggregationSelector{aggregate.SumOf(sumCol)}); err != nil {
			return err
		}
	}
	if err := tb.Compact(eng, mgr); err != nil {
		return err
	}

	out, err := os.Create(outputFile)
	if err != nil {
		return err
	}
	defer out.Close()
	return table.WriteCSV(eng, tb, out)
}

func runExport(cmd *cobra.Command, args []string) error {
	if inputFile == "" || outputFile == "" {
		return fmt.Errorf("orq-cli: --input and --output are required")
	}
	parties, engines, err := localCluster()
	if err != nil {
		return err
	}
	eng := engines[0]

	f, err := os.Open(inputFile)
	if err != nil {
		return err
	}
	defer f.Close()
	tb, err := table.ReadCSVFile(eng, f, parties[0])
	if err != nil {
		return err
	}
	out, err := os.Create(outputFile)
	if err != nil {
		return err
	}
	defer out.Close()
	return table.WriteCSV(eng, tb, out)
}

func runBench(cmd *cobra.Command, args []string) error {
	_, engines, err := localCluster()
	if err != nil {
		return err
	}
	eng := engines[0]

	counters := &telemetry.Counters{}
	values := make([]uint32, benchRows)
	for i := range values {
		values[i] = uint32(i)
	}

	start := time.Now()
	v := vector.New(values)
	s, err := eng.SecretShareA(v, eng.Self())
	if err != nil {
		return err
	}
	counters.RecordRound()
	doubled, err := eng.AddA(s, s)
	if err != nil {
		return err
	}
	counters.RecordRound()
	opened, err := eng.Open(doubled)
	if err != nil {
		return err
	}
	counters.RecordBytesOpened(opened.Size() * 4)
	elapsed := time.Since(start)

	snap := counters.Snapshot()
	fmt.Printf("rows=%d workers=%d elapsed=%s rounds=%d bytes_opened=%d\n",
		benchRows, benchWorkers, elapsed, snap.Rounds, snap.BytesOpened)
	return nil
}

func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p *= 2
	}
	return p
}
