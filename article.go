package main

import (
	"database/sql"
	"fmt"
)

// ArticleCacheKey derives the cache key for a published article.
func ArticleCacheKey(articleID int64) string {
	return fmt.Sprintf("%s%d", articleKeyPrefix, articleID)
}

// ArticleBody serves a published article's body through the cache.
// Published content is treated as immutable, so entries live for a year.
func ArticleBody(db *sql.DB, cache *Cache, articleID int64) (string, error) {
	var body string
	err := cache.GetOrFetch(ArticleCacheKey(articleID), &body, ArticleBodyTTL, func() (any, error) {
		return GetPublishedArticleBody(db, articleID)
	})
	return body, err
}
