// Package profile loads cache tuning from YAML files instead of code.
//
// A profile names a default TTL, sweep cadence, key prefix, and a set of
// TTL classes: named key templates with their own expiry. Profiles are
// validated on load, convert directly into cache options, and can be
// hot-reloaded with [Watch] so TTLs are adjustable without a deploy.
//
//	prof, err := profile.Load("cache.yaml")
//	if err != nil {
//	    return err
//	}
//	c, err := larder.New[User](dur, nil, prof.Options()...)
//
//	cls, _ := prof.Class("user")
//	u, err := larder.GetOrFetchShared(ctx, c, cls.Key(userID), fetchUser, cls.Expiry())
//
// A profile file looks like:
//
//	name: api-cache
//	default_ttl: 1h
//	sweep_interval: 5m
//	key_prefix: "cache_"
//	classes:
//	  - name: user
//	    template: "user:%s"
//	    ttl: 15m
//	  - name: listing
//	    template: "listing:%s:page:%d"
//	    ttl: 2m
package profile
