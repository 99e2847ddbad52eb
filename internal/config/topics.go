package config

const (
	// TopicBlogChangeFeed carries post create/modify/remove events emitted by
	// the CRUD storage layer.
	TopicBlogChangeFeed = "blog.changefeed"

	// ChannelIndexer is the consumer channel for the vector indexer.
	ChannelIndexer = "indexer"
)
