package opengroup

// CursorStore is the persistence contract for open-group polling cursors,
// user counts, and avatar URLs.
type CursorStore interface {
	GetLastMessageServerID(channel, server string) (int64, bool)
	SetLastMessageServerID(channel, server string, id int64)
	GetLastDeletionServerID(channel, server string) (int64, bool)
	SetLastDeletionServerID(channel, server string, id int64)
	SetUserCount(channel, server string, n int)
	GetOpenGroupAvatarURL(channel, server string) (string, bool)
	SetOpenGroupAvatarURL(channel, server, url string)
}
