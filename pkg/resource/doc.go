// Package resource is a keyed single-flight cache that lets a synchronous
// render pass consume asynchronous data.
//
// The first access for a key registers a pending entry and starts the
// computation. Every later access for that key, from any consumer, sees the
// same entry. While the entry is pending, [Use] returns a pending
// [Result] whose Ready channel closes when the entry settles; the
// rendering layer defers the subtree and retries then.
//
//	res := resource.Use(ctx, cache, resource.Key("user", id), func(ctx context.Context) (*User, error) {
//	    return db.User(ctx, id)
//	})
//	switch res.Status {
//	case resource.StatusPending:
//	    // suspend, retry after <-res.Ready()
//	case resource.StatusError:
//	    // surface res.Err to the nearest failure boundary
//	case resource.StatusSuccess:
//	    // render res.Value
//	}
//
// On the server, a cache created with [WithEmbed] writes every value that
// settles successfully as an embedded JSON script. A client cache seeded
// with [ParseEmbedded] then serves those keys without computing them again.
package resource
