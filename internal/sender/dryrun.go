package sender

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/wa-outreach/internal/model"
)

// DryRun logs every message instead of delivering it.
type DryRun struct{}

func (DryRun) Acquire(context.Context) error { return nil }

func (DryRun) Release() error { return nil }

func (DryRun) Send(_ context.Context, name, localPhone string, country model.CountryInfo, message string) error {
	zap.L().Info("sender: dry run",
		zap.String("name", name),
		zap.String("phone", country.Prefix+localPhone),
		zap.String("country", country.Code),
		zap.String("message", message),
	)
	return nil
}
