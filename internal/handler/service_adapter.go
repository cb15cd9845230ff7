package handler

import (
	"github.com/hitoshi/bookman/internal/activity"
	"github.com/hitoshi/bookman/internal/auth"
	"github.com/hitoshi/bookman/internal/book"
	"github.com/hitoshi/bookman/internal/comparison"
	"github.com/hitoshi/bookman/internal/rating"
	"github.com/hitoshi/bookman/internal/user"
)

// 各ドメインサービスはhandler側インターフェースをそのまま満たす。
// シグネチャの乖離が生じた場合はここでアダプタを挟む。

var _ AuthServiceInterface = (*auth.Service)(nil)
var _ BookServiceInterface = (*book.Service)(nil)
var _ RatingServiceInterface = (*rating.Service)(nil)
var _ ComparisonServiceInterface = (*comparison.Service)(nil)
var _ FeedServiceInterface = (*activity.Service)(nil)
var _ UserServiceInterface = (*user.Service)(nil)
