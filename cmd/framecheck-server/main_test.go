package main

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/signalsfoundry/framecheck/internal/config"
	"github.com/signalsfoundry/framecheck/internal/logging"
	"github.com/signalsfoundry/framecheck/internal/rpc"
)

func TestServerStartupSmoke(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	cfg.Server.Addr = lis.Addr().String()
	cfg.Server.MetricsAddr = ""

	log := logging.New(logging.Config{Level: "warn", Format: "text"})

	errCh := make(chan error, 1)
	go func() {
		errCh <- run(ctx, cfg, log, lis)
	}()

	conn, err := grpc.NewClient(cfg.Server.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("grpc.NewClient: %v", err)
	}
	defer conn.Close()

	client := rpc.NewReportClient(conn)
	resp, err := client.Diagnose(ctx, &structpb.Struct{})
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	sat := resp.GetFields()["satellite"].GetStructValue()
	if got := sat.GetFields()["norad_id"].GetNumberValue(); got != 39348 {
		t.Fatalf("norad_id = %v, want 39348", got)
	}

	cancel()

	if err := <-errCh; err != nil {
		t.Fatalf("server returned error: %v", err)
	}
}

func TestRunRejectsBadDefaults(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	defer lis.Close()

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	cfg.Server.MetricsAddr = ""
	cfg.Epoch = "not an epoch"

	if err := run(context.Background(), cfg, logging.Noop(), lis); err == nil {
		t.Fatal("expected error for invalid default epoch")
	}
}
