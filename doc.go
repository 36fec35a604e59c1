/*
Package cache is a two-tier object cache: a bounded in-memory tier in front of a
persistent disk tier, behind one generic API.

Reads check memory first, then disk, and copy disk hits into memory. Writes go to
disk first (the source of truth) and then to memory. Values are serialized by a
pluggable codec at the disk boundary; JSON is the default.

	c, err := cache.New[User](config.Config{
		StorageLocation:  "/var/cache/users",
		MaxDiskBytes:     64 << 20,
		MemoryCountLimit: 1000,
		DefaultExpiry:    expiration.After(time.Hour),
	})
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.Set(ctx, "u:42", u); err != nil {
		return err // errors.Is(err, types.ErrCacheWrite)
	}
	u, ok, err := c.Get(ctx, "u:42")

The same operations are available without blocking through c.Async(), which
returns Futures and keeps operations on one key in submission order.
*/
package cache
