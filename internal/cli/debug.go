package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/prometheus/common/expfmt"
)

type DebugCmd struct {
	Paths   DebugPathsCmd   `cmd:"" help:"Show config and database paths."`
	Dump    DebugDumpCmd    `cmd:"" help:"Dump a routine as JSON."`
	Metrics DebugMetricsCmd `cmd:"" help:"Load routines and print the collected metrics."`
}

type DebugPathsCmd struct{}

func (cmd *DebugPathsCmd) Run(ctx *Context) error {
	output := map[string]string{
		"config":  ctx.Config.Path(),
		"backend": string(ctx.Config.Backend),
	}
	if ctx.Backend != nil {
		output["database"] = ctx.Backend.GetConfigPath()
	} else {
		output["api"] = ctx.Config.API.BaseURL
	}

	jsonBytes, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	ctx.println(string(jsonBytes))
	return nil
}

type DebugDumpCmd struct {
	ID string `arg:"" help:"ID of the routine to dump."`
}

func (cmd *DebugDumpCmd) Run(ctx *Context) error {
	if err := ctx.Load(context.Background()); err != nil {
		return err
	}

	r, err := ctx.Store.Get(cmd.ID)
	if err != nil {
		return err
	}

	jsonBytes, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal routine: %w", err)
	}
	ctx.println(string(jsonBytes))
	return nil
}

type DebugMetricsCmd struct{}

func (cmd *DebugMetricsCmd) Run(ctx *Context) error {
	if err := ctx.Load(context.Background()); err != nil {
		return err
	}

	families, err := ctx.Registry.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(ctx.Out, mf); err != nil {
			return fmt.Errorf("failed to encode metrics: %w", err)
		}
	}
	return nil
}
