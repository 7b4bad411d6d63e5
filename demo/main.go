package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"github.com/aesirxio/concordium-dapp-libraries/schemarpc"
)

func main() {
	ctx := context.Background()

	moduleRef := os.Getenv("SCHEMARPC_MODULE_REF")
	if moduleRef == "" {
		log.Fatalf("ERROR: SCHEMARPC_MODULE_REF is not set.\n" +
			"Example:\n" +
			"  export SCHEMARPC_MODULE_REF=\"5d99b6dfa7ba9dc0cac8626754985500d51d6d06829210748b3fd24fa30cde4a\"\n")
	}

	cfg, err := schemarpc.ConfigFromEnv()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	contract := schemarpc.ContractInfo{
		Name:      getEnvOrDefault("SCHEMARPC_CONTRACT_NAME", "demo"),
		Index:     getEnvUint("SCHEMARPC_CONTRACT_INDEX", 0),
		Subindex:  getEnvUint("SCHEMARPC_CONTRACT_SUBINDEX", 0),
		ModuleRef: moduleRef,
	}
	if err := run(ctx, cfg, contract, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

// run resolves contract and writes its schema to out. The resolver is
// closed before run returns.
func run(ctx context.Context, cfg schemarpc.Config, contract schemarpc.ContractInfo, out io.Writer) error {
	resolver, err := schemarpc.NewSchemaResolver(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create resolver: %w", err)
	}
	defer func() {
		if err := resolver.Close(ctx); err != nil {
			log.Printf("Failed to close resolver: %v", err)
		}
	}()

	log.Printf("Resolving schema of contract %s <%d,%d> from module %s", contract.Name, contract.Index, contract.Subindex, contract.ModuleRef)

	outcome := resolver.Resolve(ctx, contract)
	if !outcome.Ok() {
		return fmt.Errorf("failed to resolve schema (%s): %s", schemarpc.KindOf(outcome.Err), outcome.ErrorMessage())
	}
	if outcome.Schema == nil {
		log.Println("Module has no embedded schema")
		return nil
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(outcome.Schema); err != nil {
		return fmt.Errorf("failed to write schema: %w", err)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvUint(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseUint(value, 10, 64); err == nil {
			return n
		}
	}
	return defaultValue
}
