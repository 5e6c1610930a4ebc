package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/technova/attrition-console/internal/client"
	"github.com/technova/attrition-console/internal/config"
	"github.com/technova/attrition-console/internal/models"
	"github.com/technova/attrition-console/internal/risk"
	"github.com/technova/attrition-console/internal/schema"
	"github.com/technova/attrition-console/internal/services"
	"github.com/technova/attrition-console/internal/utils"
)

const usage = `usage: attritionctl [flags] <command> [command flags]

commands:
  health      check the scoring service
  info        show model metadata
  features    list the features the model consumes
  employees   list a roster page
  predict     score a record file, an example profile or a stored employee
  history     list recent predictions
  schema      print the feature schema and example profiles
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

type cli struct {
	out       io.Writer
	errOut    io.Writer
	asJSON    bool
	scoring   *client.Client
	presenter *risk.Presenter
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet("attritionctl", flag.ContinueOnError)
	global.SetOutput(stderr)
	global.Usage = func() { fmt.Fprint(stderr, usage) }
	configPath := global.String("config", "", "Path to configuration file")
	baseURL := global.String("url", "", "Scoring service base URL (overrides config)")
	asJSON := global.Bool("json", false, "Print JSON instead of text")
	verbose := global.Bool("v", false, "Log requests to stderr")
	if err := global.Parse(args); err != nil {
		return 2
	}
	if global.NArg() == 0 {
		global.Usage()
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}
	if *baseURL != "" {
		cfg.Scoring.BaseURL = *baseURL
	}

	level := "error"
	if *verbose {
		level = "debug"
	}
	logger := utils.NewLogger(stderr, level, false)

	scoring, err := client.New(client.Options{
		BaseURL: cfg.Scoring.BaseURL,
		Timeout: cfg.Scoring.Timeout,
		Logger:  logger,
		Paths:   cfg.Scoring.Paths,
	})
	if err != nil {
		fmt.Fprintf(stderr, "client: %v\n", err)
		return 1
	}
	classifier, err := risk.NewClassifier(cfg.Risk.Thresholds())
	if err != nil {
		fmt.Fprintf(stderr, "risk: %v\n", err)
		return 1
	}
	profiles, err := risk.LoadProfiles(cfg.Risk.ProfilesPath, logger)
	if err != nil {
		fmt.Fprintf(stderr, "risk: %v\n", err)
		return 1
	}
	presenter, err := risk.NewPresenter(classifier, profiles)
	if err != nil {
		fmt.Fprintf(stderr, "risk: %v\n", err)
		return 1
	}

	c := &cli{out: stdout, errOut: stderr, asJSON: *asJSON, scoring: scoring, presenter: presenter}
	command, rest := global.Arg(0), global.Args()[1:]
	switch command {
	case "health":
		return c.health(ctx)
	case "info":
		return c.info(ctx)
	case "features":
		return c.features(ctx)
	case "employees":
		return c.employees(ctx, rest, cfg.Roster.PageSize)
	case "predict":
		return c.predict(ctx, rest)
	case "history":
		return c.history(ctx, rest, cfg.Roster.PageSize)
	case "schema":
		return c.schema()
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", command)
		global.Usage()
		return 2
	}
}

func (c *cli) fail(err error) int {
	for _, line := range client.DescribeWith(c.scoring.Translator(), err) {
		fmt.Fprintln(c.errOut, line)
	}
	return 1
}

func (c *cli) printJSON(v any) int {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(c.errOut, "encode output: %v\n", err)
		return 1
	}
	return 0
}

func (c *cli) health(ctx context.Context) int {
	status := c.scoring.CheckHealth(ctx)
	if c.asJSON {
		c.printJSON(map[string]string{"status": string(status), "label": services.StatusLabel(status)})
	} else {
		fmt.Fprintln(c.out, services.StatusLabel(status))
	}
	if status == models.HealthDisconnected {
		return 1
	}
	return 0
}

func (c *cli) info(ctx context.Context) int {
	info, err := c.scoring.FetchModelInfo(ctx)
	if err != nil {
		return c.fail(err)
	}
	if c.asJSON {
		return c.printJSON(info)
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Modèle\t%s\n", info.ModelType)
	fmt.Fprintf(tw, "Exporté le\t%s\n", info.ExportDate)
	fmt.Fprintf(tw, "Features\t%d\n", info.NFeatures)
	for _, key := range sortedKeys(info.Metrics) {
		fmt.Fprintf(tw, "%s\t%v\n", key, info.Metrics[key])
	}
	return flushTab(tw, c.errOut)
}

func (c *cli) features(ctx context.Context) int {
	catalog, err := c.scoring.FetchFeatures(ctx)
	if err != nil {
		return c.fail(err)
	}
	if c.asJSON {
		return c.printJSON(catalog)
	}
	fmt.Fprintf(c.out, "%d features (%d catégorielles, %d numériques)\n", catalog.Total, len(catalog.Categorical), len(catalog.Numerical))
	for _, name := range catalog.Features {
		fmt.Fprintln(c.out, "  "+name)
	}
	return 0
}

func (c *cli) employees(ctx context.Context, args []string, pageSize int) int {
	fs := flag.NewFlagSet("employees", flag.ContinueOnError)
	fs.SetOutput(c.errOut)
	skip := fs.Int("skip", 0, "Rows to skip")
	limit := fs.Int("limit", pageSize, "Rows to return")
	dataset := fs.String("dataset", "", "Dataset filter: train or test")
	search := fs.String("search", "", "Filter by id, department or position")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	rows, err := c.scoring.ListEmployees(ctx, models.RosterQuery{Skip: *skip, Limit: *limit, DatasetType: models.DatasetType(*dataset)})
	if err != nil {
		fmt.Fprintln(c.errOut, "Échec du chargement des employés")
		return c.fail(err)
	}
	rows = services.FilterRoster(rows, *search)
	if c.asJSON {
		return c.printJSON(rows)
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tÂGE\tDÉPARTEMENT\tPOSTE\tSALAIRE\tANCIENNETÉ\tJEU")
	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%.0f\t%d\t%s\n", r.EmployeeID, r.Age, r.Departement, r.Poste, r.RevenuMensuel, r.AnneesDansEntreprise, r.DatasetType)
	}
	return flushTab(tw, c.errOut)
}

func (c *cli) predict(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("predict", flag.ContinueOnError)
	fs.SetOutput(c.errOut)
	file := fs.String("file", "", "YAML or JSON record file; a list scores a batch")
	example := fs.String("example", "", "Example profile: high, medium or low")
	employee := fs.Int("employee", 0, "Stored employee id")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	switch {
	case *employee > 0:
		result, err := c.scoring.PredictByEmployeeID(ctx, *employee)
		if err != nil {
			return c.fail(err)
		}
		return c.show([]models.PredictionResult{result})
	case *example != "":
		profile, ok := schema.Example(*example)
		if !ok {
			fmt.Fprintf(c.errOut, "unknown example profile %q\n", *example)
			return 2
		}
		return c.predictRecords(ctx, []models.EmployeeFeatures{profile.Record})
	case *file != "":
		records, err := readRecords(*file)
		if err != nil {
			fmt.Fprintln(c.errOut, err)
			return 1
		}
		return c.predictRecords(ctx, records)
	default:
		fmt.Fprintln(c.errOut, "predict needs -file, -example or -employee")
		return 2
	}
}

func (c *cli) predictRecords(ctx context.Context, records []models.EmployeeFeatures) int {
	for i, record := range records {
		for _, warning := range schema.Check(record) {
			prefix := ""
			if len(records) > 1 {
				prefix = "[" + strconv.Itoa(i) + "] "
			}
			fmt.Fprintf(c.errOut, "attention: %s%s\n", prefix, warning.String())
		}
	}

	if len(records) == 1 {
		result, err := c.scoring.Predict(ctx, records[0])
		if err != nil {
			return c.fail(err)
		}
		return c.show([]models.PredictionResult{result})
	}
	results, err := c.scoring.PredictBatch(ctx, records)
	if err != nil {
		return c.fail(err)
	}
	return c.show(results)
}

func (c *cli) show(results []models.PredictionResult) int {
	presentations := make([]risk.Presentation, 0, len(results))
	for _, r := range results {
		presentations = append(presentations, c.presenter.Present(r))
	}
	if c.asJSON {
		if len(presentations) == 1 {
			return c.printJSON(presentations[0])
		}
		return c.printJSON(presentations)
	}
	for i, p := range presentations {
		if i > 0 {
			fmt.Fprintln(c.out)
		}
		writePresentation(c.out, p)
	}
	return 0
}

func writePresentation(w io.Writer, p risk.Presentation) {
	fmt.Fprintf(w, "%s (%s)\n", p.Profile.Label, p.Profile.Description)
	fmt.Fprintf(w, "Probabilité de départ: %s%%\n", p.ProbabilityPercent)
	fmt.Fprintf(w, "Prédiction: %s\n", p.OutcomeLabel)
	if p.EmployeeID != nil {
		fmt.Fprintf(w, "Employé: #%d\n", *p.EmployeeID)
	}
	if p.Timestamp != "" {
		fmt.Fprintf(w, "Analysé le: %s\n", p.Timestamp)
	}
	if len(p.EngineeredFeatures) > 0 {
		fmt.Fprintln(w, "Indicateurs:")
		for _, f := range p.EngineeredFeatures {
			fmt.Fprintf(w, "  %s: %s\n", f.Label, f.Value)
		}
	}
	fmt.Fprintln(w, "Recommandations:")
	for _, rec := range p.Profile.Recommendations {
		fmt.Fprintf(w, "  - %s\n", rec)
	}
}

func (c *cli) history(ctx context.Context, args []string, pageSize int) int {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.SetOutput(c.errOut)
	skip := fs.Int("skip", 0, "Rows to skip")
	limit := fs.Int("limit", pageSize, "Rows to return")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	records, err := c.scoring.ListPredictions(ctx, *skip, *limit)
	if err != nil {
		return c.fail(err)
	}
	if c.asJSON {
		return c.printJSON(records)
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tEMPLOYÉ\tRISQUE\tPROBABILITÉ\tDATE")
	for _, r := range records {
		p := c.presenter.Present(r.Result())
		employee := "-"
		if r.EmployeeID != nil {
			employee = strconv.Itoa(*r.EmployeeID)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s%%\t%s\n", r.ID, employee, p.Profile.Label, p.ProbabilityPercent, p.Timestamp)
	}
	return flushTab(tw, c.errOut)
}

func (c *cli) schema() int {
	if c.asJSON {
		return c.printJSON(map[string]any{
			"fields":   schema.Fields(),
			"examples": schema.ExampleProfiles(),
		})
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CHAMP\tLIBELLÉ\tTYPE\tVALEURS")
	for _, f := range schema.Fields() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.Name, f.Label, f.Kind, describeRange(f))
	}
	if code := flushTab(tw, c.errOut); code != 0 {
		return code
	}
	fmt.Fprintln(c.out)
	for _, ex := range schema.ExampleProfiles() {
		fmt.Fprintf(c.out, "exemple %s: %s (%s)\n", ex.Key, ex.Label, ex.Description)
	}
	return 0
}

func describeRange(f schema.Field) string {
	if f.Kind == schema.Categorical {
		return strings.Join(f.Domain, ", ")
	}
	lo, hi := "", ""
	if f.Min != nil {
		lo = strconv.FormatFloat(*f.Min, 'f', -1, 64)
	}
	if f.Max != nil {
		hi = strconv.FormatFloat(*f.Max, 'f', -1, 64)
	}
	return "[" + lo + ", " + hi + "]"
}

// readRecords accepts one record or a list of records. YAML is a superset of
// JSON so both formats go through the same decoder. Missing fields keep the
// values of schema.DefaultRecord.
func readRecords(path string) ([]models.EmployeeFeatures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, utils.NewAppError("read records", path, "failed to read record file", err)
	}
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, utils.NewAppError("read records", path, "failed to parse record file", err)
	}
	if len(root.Content) == 0 {
		return nil, utils.NewAppError("read records", path, "record file is empty", nil)
	}

	doc := root.Content[0]
	switch doc.Kind {
	case yaml.SequenceNode:
		if len(doc.Content) == 0 {
			return nil, utils.NewAppError("read records", path, "record list is empty", nil)
		}
		records := make([]models.EmployeeFeatures, 0, len(doc.Content))
		for i, item := range doc.Content {
			record := schema.DefaultRecord()
			if err := item.Decode(&record); err != nil {
				return nil, utils.NewAppError("read records", path, fmt.Sprintf("invalid record %d", i), err)
			}
			records = append(records, record)
		}
		return records, nil
	case yaml.MappingNode:
		record := schema.DefaultRecord()
		if err := doc.Decode(&record); err != nil {
			return nil, utils.NewAppError("read records", path, "invalid record", err)
		}
		return []models.EmployeeFeatures{record}, nil
	default:
		return nil, utils.NewAppError("read records", path, "expected a record or a list of records", nil)
	}
}

func flushTab(tw *tabwriter.Writer, errOut io.Writer) int {
	if err := tw.Flush(); err != nil {
		fmt.Fprintf(errOut, "write output: %v\n", err)
		return 1
	}
	return 0
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
