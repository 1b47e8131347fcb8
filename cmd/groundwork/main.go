package main

import (
	"context"

	"github.com/google/uuid"

	"github.com/groundwork-sh/groundwork/cmd/groundwork/commands"
	"github.com/groundwork-sh/groundwork/internal/doctor"
)

func main() {
	traceId := uuid.NewString()
	ctx := context.WithValue(context.Background(), "traceId", traceId)
	err := commands.Execute(ctx)
	if err != nil {
		doctor.CheckErr(ctx, err)
	}
}
