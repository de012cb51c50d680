package cmd

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/ridoystarlord/tablesmith/schema"
)

var databasesCmd = &cobra.Command{
	Use:   "databases",
	Short: "List databases on the server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		dbs, err := s.wb.Databases(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("🗄️  %d database(s)\n", len(dbs))
		for _, d := range dbs {
			fmt.Printf("   • %s\n", d)
		}
		return nil
	},
}

var createDatabaseCmd = &cobra.Command{
	Use:   "create-database <name>",
	Short: "Create a database (utf8mb4)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		res, err := s.wb.CreateDatabase(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printResult("Database "+args[0]+" created", res)
		return nil
	},
}

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List tables in the current database",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		tables, err := s.wb.Tables(cmd.Context())
		if err != nil {
			return err
		}
		if len(tables) == 0 {
			fmt.Println("📋 No tables found")
			return nil
		}
		fmt.Printf("📋 %d table(s)\n", len(tables))
		for _, t := range tables {
			fmt.Printf("   • %s\n", t)
		}
		return nil
	},
}

var describeCmd = &cobra.Command{
	Use:   "describe <table>",
	Short: "Show columns and foreign keys of a table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		snap, err := s.wb.Describe(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printSnapshot(snap)
		return nil
	},
}

func printSnapshot(snap *schema.TableSnapshot) {
	green.Printf("📄 %s\n", snap.Name)

	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.Style().Format.Header = text.FormatDefault
	t.AppendHeader(table.Row{"Column", "Type", "Null", "Key", "Default", "Extra"})
	for _, c := range snap.Columns {
		key := ""
		switch {
		case c.PrimaryKey:
			key = "PRI"
		case c.Unique:
			key = "UNI"
		}
		if fk, ok := snap.ForeignKeyOn(c.Name); ok {
			key += fmt.Sprintf(" → %s.%s", fk.RefTable, fk.RefColumn)
		}
		def := "NULL"
		if c.Default != nil {
			def = *c.Default
		}
		extra := ""
		if c.AutoIncrement {
			extra = "auto_increment"
		}
		null := "NO"
		if c.Nullable {
			null = "YES"
		}
		t.AppendRow(table.Row{c.Name, c.Type, null, key, def, extra})
	}
	fmt.Println(t.Render())

	for _, fk := range snap.ForeignKeys {
		fmt.Printf("🔗 %s: %s → %s.%s (ON DELETE %s, ON UPDATE %s)\n",
			fk.ConstraintName(snap.Name), fk.Column, fk.RefTable, fk.RefColumn, fk.OnDelete, fk.OnUpdate)
	}
}

func init() {
	rootCmd.AddCommand(databasesCmd, createDatabaseCmd, tablesCmd, describeCmd)
}
