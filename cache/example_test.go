/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package cache

import (
	"fmt"
	"log"
	"time"
)

func Example() {
	type User struct {
		ID   int
		Name string
	}

	// Make cache for storing maximum 1000 entries, values expire after 10 minutes by default.
	userCache, err := NewWithOpts[User](1000, nil, Options{DefaultTTL: 10 * time.Minute})
	if err != nil {
		log.Fatal(err)
	}

	// Add entries to cache.
	userCache.Set("user:1", User{1, "John"})
	userCache.Set("user:2", User{2, "Jane"})

	// Get entries from cache.
	if user, found := userCache.Get("user:1"); found {
		fmt.Printf("%d, %s\n", user.ID, user.Name)
	}

	// Invalidate all user entries at once.
	fmt.Println(userCache.InvalidateGlob("user:*"))

	stats := userCache.Stats()
	fmt.Printf("entries: %d, hit rate: %s\n", stats.Size, stats.HitRate)

	// Output:
	// 1, John
	// 2
	// entries: 0, hit rate: 100.0%
}
