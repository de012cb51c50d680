package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ridoystarlord/tablesmith/studio"
)

var studioCmd = &cobra.Command{
	Use:   "studio",
	Short: "Serve the JSON API for browsing and editing tables",
	Long: `Launch tablesmith studio, a JSON API over the same operations as the CLI.

The API is available at http://localhost:8080/api by default.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		port := viper.GetString("studio.port")
		fmt.Printf("🚀 Starting tablesmith studio on http://localhost:%s/api\n", port)
		fmt.Println("Press Ctrl+C to stop the server")

		return studio.NewServer(studio.Config{Service: s.wb, Port: port, Logger: s.logger}).Serve(ctx)
	},
}

func init() {
	studioCmd.Flags().String("port", "8080", "Port to run the web server on")
	_ = viper.BindPFlag("studio.port", studioCmd.Flags().Lookup("port"))
	rootCmd.AddCommand(studioCmd)
}
