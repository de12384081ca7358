// Command ddnengine serves GraphQL requests against OpenDD metadata,
// planning and executing operations against NDC data connectors.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/opendd/ddnengine/internal/eventbus"
	"github.com/opendd/ddnengine/internal/executor"
	"github.com/opendd/ddnengine/internal/metadataresolve"
	"github.com/opendd/ddnengine/internal/ndc"
	"github.com/opendd/ddnengine/internal/opendd"
	"github.com/opendd/ddnengine/internal/otel"
	"github.com/opendd/ddnengine/internal/schema"
	"github.com/opendd/ddnengine/internal/server"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	cfg, err := LoadConfig(args)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	loader, err := opendd.NewFSLoader(cfg.Metadata.Root)
	if err != nil {
		return fmt.Errorf("open metadata root %q: %w", cfg.Metadata.Root, err)
	}
	raw, err := opendd.Load(context.Background(), loader)
	if err != nil {
		return fmt.Errorf("load metadata: %w", err)
	}
	md, err := metadataresolve.Resolve(raw)
	if err != nil {
		return fmt.Errorf("resolve metadata: %w", err)
	}

	schemas := make(map[string]*schema.Schema, len(md.Roles))
	for role := range md.Roles {
		s, err := schema.BuildForRole(md, string(role))
		if err != nil {
			return fmt.Errorf("build schema for role %q: %w", role, err)
		}
		schemas[string(role)] = s
	}
	if len(schemas) == 0 {
		return fmt.Errorf("metadata declares no roles")
	}

	clients := make(executor.Clients, len(md.DataConnectors))
	for name, link := range md.DataConnectors {
		writeURL := link.URL.WriteURL
		readURL := link.URL.ReadURL
		if !link.URL.ReadWrite {
			readURL = link.URL.Single
			writeURL = ""
		}
		clients[name] = ndc.NewClient(readURL, writeURL, link.Headers, cfg.Server.ConnectorTimeout)
	}

	eventbus.Use(eventbus.New())
	shutdown, err := otel.Setup(cfg.Observability.OTLPEndpoint, cfg.Observability.ServiceName)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	if cfg.Observability.MetricsEnabled {
		if _, err := otel.SetupMetrics(cfg.Observability.ServiceName); err != nil {
			return fmt.Errorf("metrics setup: %w", err)
		}
	}

	var sopts []server.Option
	if cfg.Server.Pretty {
		sopts = append(sopts, server.WithPretty())
	}
	if cfg.Server.Timeout > 0 {
		sopts = append(sopts, server.WithTimeout(cfg.Server.Timeout))
	}
	if cfg.Server.MaxBodyBytes > 0 {
		sopts = append(sopts, server.WithMaxBodyBytes(cfg.Server.MaxBodyBytes))
	}
	if len(cfg.Server.MetadataHeaders) > 0 {
		sopts = append(sopts, server.WithMetadataHeaders(cfg.Server.MetadataHeaders...))
	}
	if len(cfg.Server.CORSOrigins) > 0 {
		sopts = append(sopts, server.WithCORS(cfg.Server.CORSOrigins...))
	}
	sopts = append(sopts, server.WithGraphiQL(cfg.Server.GraphiQL))

	h, err := server.New(md, raw, schemas, clients, sopts...)
	if err != nil {
		return fmt.Errorf("server init: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/", h)
	if cfg.Observability.MetricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
	}

	httpSrv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	log.Printf("ddnengine listening on %s (metadata: %s, roles: %d, connectors: %d)",
		cfg.Server.Addr, cfg.Metadata.Root, len(schemas), len(clients))
	return httpSrv.ListenAndServe()
}
