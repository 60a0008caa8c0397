package runtime

import (
	"context"
	"io"
	"time"

	ferrors "github.com/vango-dev/firebolt/internal/errors"
	"github.com/vango-dev/firebolt/pkg/head"
	"github.com/vango-dev/firebolt/pkg/render"
	"github.com/vango-dev/firebolt/pkg/resource"
	"github.com/vango-dev/firebolt/pkg/router"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// RenderDocument performs the server render pass for the session URL and
// writes the complete document to w. Nothing is written on error.
func (s *Session) RenderDocument(ctx context.Context, w io.Writer) error {
	if s.ssr == nil {
		return ferrors.Newf(ferrors.CategoryHydration, "RenderDocument called on a client session")
	}
	url := s.ssr.URL

	ctx, span := s.tracer.Start(ctx, "runtime.render",
		trace.WithAttributes(attribute.String("firebolt.url", url)))
	defer span.End()
	start := time.Now()

	loc, route, err := s.ResolveRoute(url)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetAttributes(attribute.String("firebolt.route", route.ID))

	if err := s.LoadRoute(ctx, route); err != nil {
		fe := ferrors.New("E002").WithField("url", loc.URL).WithField("route", route.ID).Wrap(err)
		span.SetStatus(codes.Error, fe.Error())
		return fe
	}

	md := s.serverMetadata(ctx, loc)

	doc := &render.Document{
		Head:    s.head,
		Manager: s.headManager,
		Inserts: s.ssr.Inserts,
		Scripts: s.scripts,
	}
	err = doc.Render(ctx, w, func() render.Fragment {
		return s.renderRoute(ctx, loc, route, md, route.Page())
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetStatus(codes.Ok, "")
	s.logger.Debug("document rendered", "url", loc.URL, "route", route.ID,
		"resources", s.resources.Len(), "duration", time.Since(start))
	return nil
}

// serverMetadata fetches metadata for loc and embeds it for the client.
// Failures are logged and rendering continues without metadata.
func (s *Session) serverMetadata(ctx context.Context, loc router.Location) *router.Metadata {
	md, err := s.FetchMetadata(ctx, loc.URL)
	if err != nil {
		s.logger.Warn("metadata failed", ferrors.FromError(err, "E003").WithField("url", loc.URL).LogAttrs()...)
		return nil
	}
	script, err := resource.EmbedScript(MetadataKey(loc.URL), md)
	if err != nil {
		s.logger.Warn("metadata embed failed", "url", loc.URL, "error", err)
		return md
	}
	io.WriteString(s.ssr, script)
	return md
}

// renderRoute renders one attempt of a page. Head contributions are kept
// only from the attempt that settles, so retries never duplicate them.
func (s *Session) renderRoute(ctx context.Context, loc router.Location, route *router.Route, md *router.Metadata, page router.Page) render.Fragment {
	var tags []head.Tag
	if md != nil {
		if md.Title != "" {
			tags = append(tags, head.Title(md.Title))
		}
		tags = append(tags, md.Head...)
	}
	props := router.NewPageProps(loc, s.resources, md, func(t []head.Tag) {
		tags = append(tags, t...)
	})

	frag := page(ctx, props)
	if frag.IsPending() {
		return frag
	}
	s.mountHead(tags)
	return frag
}

// mountHead replaces the mounted page's head contribution with tags.
func (s *Session) mountHead(tags []head.Tag) {
	s.mountMu.Lock()
	defer s.mountMu.Unlock()
	if s.unmount != nil {
		s.unmount()
		s.unmount = nil
	}
	if len(tags) > 0 {
		s.unmount = s.headManager.Insert(tags)
	}
}
