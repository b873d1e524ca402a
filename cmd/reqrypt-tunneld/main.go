// Command reqrypt-tunneld runs the tunnel pool daemon: it loads the
// persisted tunnel cache, opens the configured HTTP status surface,
// and keeps the active tunnel fleet populated in the background.
package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/DaviWei/reqrypt/config"
	"github.com/DaviWei/reqrypt/httpviews"
	"github.com/DaviWei/reqrypt/transport"
	"github.com/DaviWei/reqrypt/tunnelpool"
)

var rootCmd = &cobra.Command{
	Use:     "reqrypt-tunneld",
	Short:   "Outbound encrypted tunnel pool daemon",
	Version: "0.1.0",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Load the tunnel cache and run the pool and HTTP status surface",
	RunE:  runServe,
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the persisted tunnel cache without running the pool",
	RunE:  runCache,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(cacheCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	config.Load()

	pool := tunnelpool.New(transport.NewWSTransport(), tunnelpool.Config{
		ConfigMTU: config.Cfg.ConfigMTU,
		CacheDir:  config.Cfg.CacheDir,
	})

	if err := pool.Init(); err != nil {
		return fmt.Errorf("init: %w", err)
	}

	for _, url := range config.Cfg.InitialURLs {
		if err := pool.Add(url); err != nil {
			log.Printf("[reqrypt-tunneld] seed url %s rejected: %v", url, err)
		}
	}

	pool.Open()

	srv := httpviews.NewServer(config.Cfg.ListenAddr, httpviews.New(pool))
	log.Printf("[reqrypt-tunneld] listening on %s", config.Cfg.ListenAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

func runCache(cmd *cobra.Command, args []string) error {
	config.Load()

	pool := tunnelpool.New(transport.NewWSTransport(), tunnelpool.Config{
		ConfigMTU: config.Cfg.ConfigMTU,
		CacheDir:  config.Cfg.CacheDir,
	})
	if err := pool.Init(); err != nil {
		return fmt.Errorf("init: %w", err)
	}

	var b strings.Builder
	pool.RenderList(&b, false)
	fmt.Print(b.String())
	return nil
}
