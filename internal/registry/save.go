package registry

import (
	"context"
	"fmt"

	"github.com/specialistvlad/livebag/internal/config"
	"github.com/specialistvlad/livebag/internal/ctxlog"
	"github.com/specialistvlad/livebag/internal/fsutil"
	"github.com/specialistvlad/livebag/internal/metrics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Save writes the document to the current path, which must already exist as
// a regular file.
func (r *Registry) Save(ctx context.Context) error {
	path := r.Path()
	if !fsutil.IsRegularFile(path) {
		ctxlog.FromContextOr(ctx, r.logger).Error("Cannot save, document path is not an existing file.", "path", path)
		r.metrics.Save(metrics.ResultError)
		return fmt.Errorf("%w: %q", ErrNoPath, path)
	}
	return r.SaveAs(ctx, path)
}

// SaveAs writes the document to path, creating or replacing it atomically.
func (r *Registry) SaveAs(ctx context.Context, path string) (err error) {
	ctx, span := r.tracer.Start(ctx, "registry.Save", trace.WithAttributes(attribute.String("livebag.path", path)))
	defer func() {
		r.metrics.Save(metrics.Result(err))
		endSpan(span, &err)
	}()

	logger := ctxlog.FromContextOr(ctx, r.logger)
	doc := r.Document()

	if err = r.codec.Write(ctxlog.WithLogger(ctx, logger), path, doc); err != nil {
		logger.Error("Failed to save document.", "path", path, "error", err)
		return err
	}
	logger.Info("Document saved.", "path", path, "groups", len(doc.Groups), "containers", len(doc.Dynamics))
	return nil
}

// Document builds the document Save would write.
func (r *Registry) Document() *config.Document {
	doc := config.NewDocument()
	doc.Version = r.Version()
	doc.HasVersion = true

	containers := r.Containers()
	if len(containers) > 0 {
		doc.Dynamics = make(map[string][]config.ObjectKey, len(containers))
		for name, c := range containers {
			content := c.Content()
			config.SortKeys(content)
			doc.Dynamics[name] = content
		}
	}

	for _, item := range r.Items() {
		doc.SetLeaf(item.Group, item.Name, item.Entry.Encode())
	}
	return doc
}
