package platforms

import (
	"github.com/specfusion/specfusion/internal/adapter"
	"github.com/specfusion/specfusion/internal/browser"
)

// Register adds every built-in platform adapter to the registry. driver
// may be nil; the browser-driven sources then fail at fetch time with a
// clear error instead of at registration.
func Register(r *adapter.Registry, driver browser.Driver) {
	r.Register("feishu", func() (adapter.Adapter, error) { return NewFeishu(), nil })
	r.Register("douyin", func() (adapter.Adapter, error) { return NewDouyin(), nil })
	r.Register("youzan", func() (adapter.Adapter, error) { return NewYouzan(), nil })
	r.Register("wechat_mp", func() (adapter.Adapter, error) { return NewWechatMiniprogram(), nil })
	r.Register("wechat_shop", func() (adapter.Adapter, error) { return NewWechatShop(), nil })
	r.Register("taobao", func() (adapter.Adapter, error) { return NewTaobao(), nil })
	r.Register("pinduoduo", func() (adapter.Adapter, error) { return NewPinduoduo(), nil })
	r.Register("dingtalk", func() (adapter.Adapter, error) { return NewDingtalk(driver), nil })
	r.Register("xiaohongshu", func() (adapter.Adapter, error) { return NewXiaohongshu(driver), nil })
}
