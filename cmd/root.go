package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ridoystarlord/tablesmith/export"
)

var (
	configFile   string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "tablesmith",
	Short: "Schema-aware table and row editor for MySQL",
	Long: `tablesmith builds DDL and DML from the live MySQL catalog: create and alter
tables, attach foreign keys and lookup "combobox" tables, and edit rows with a
dependency check before every delete.

Examples:

  tablesmith tables
  tablesmith create-table products --column "id:INT:pk,ai" --column "name:VARCHAR(100):notnull"
  tablesmith combobox products category Electronics Furniture
  tablesmith delete-row customers 7
`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configFile != "" {
			viper.SetConfigFile(configFile)
		}
		return nil
	},
}

// Execute runs the CLI
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		reportError(err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file (default ./tablesmith.yaml)")
	flags.String("host", "", "MySQL host (MYSQL_HOST)")
	flags.Int("port", 0, "MySQL port (MYSQL_PORT)")
	flags.String("user", "", "MySQL user (MYSQL_USER)")
	flags.String("password", "", "MySQL password (MYSQL_PASSWORD)")
	flags.StringP("database", "d", "", "database to work in (MYSQL_DATABASE)")
	flags.String("dsn", "", "full driver DSN, overrides the fields above (DATABASE_URL)")
	flags.Bool("audit", false, "record every operation in the activity journal (TABLESMITH_AUDIT)")
	flags.String("log-level", "", "debug, info, warn or error (LOG_LEVEL)")
	flags.StringVarP(&outputFormat, "output", "o", export.FormatTable, fmt.Sprintf("result format: %v", export.Formats))

	for key, flag := range map[string]string{
		"mysql.host":     "host",
		"mysql.port":     "port",
		"mysql.user":     "user",
		"mysql.password": "password",
		"mysql.database": "database",
		"mysql.dsn":      "dsn",
		"audit":          "audit",
		"log.level":      "log-level",
	} {
		_ = viper.BindPFlag(key, flags.Lookup(flag))
	}
}
