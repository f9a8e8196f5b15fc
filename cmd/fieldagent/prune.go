package main

import (
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/cache"
)

// pruneCaches drops expired entries from every namespace the field tools keep in the shared database
func pruneCaches(caches ...*cache.Cache) int {
	var n int
	for _, c := range caches {
		n += c.Prune()
	}
	return n
}
