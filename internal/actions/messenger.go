package actions

import (
	"context"
	"fmt"
)

// whatsappWebURL 网页端入口。
// whatsappWebURL is the web client entry point.
const whatsappWebURL = "https://web.whatsapp.com"

// Messenger 桌面消息走 Messages.app，网页消息经浏览器桥走 WhatsApp Web。
// Messenger sends desktop messages through Messages.app and web messages
// through WhatsApp Web over the browser bridge.
type Messenger struct {
	native  *Mac
	browser *Browser
}

func NewMessenger(native *Mac, browser *Browser) *Messenger {
	return &Messenger{native: native, browser: browser}
}

func (m *Messenger) SendMessage(ctx context.Context, contact, message string) (string, error) {
	return m.native.SendMessage(ctx, contact, message)
}

// SendWebMessage 打开 WhatsApp Web，进入联系人聊天，输入并回车发送。消息文本
// 原样输入，不做任何改写。
// SendWebMessage opens WhatsApp Web, enters the contact's chat, types the
// message and presses enter. The message text is typed verbatim, never
// rewritten.
func (m *Messenger) SendWebMessage(ctx context.Context, contact, message string) (string, error) {
	if _, err := m.browser.Navigate(ctx, whatsappWebURL); err != nil {
		return "", fmt.Errorf("open whatsapp web: %w", err)
	}
	if _, err := m.browser.Click(ctx, contact); err != nil {
		return "", fmt.Errorf("open chat with %s: %w", contact, err)
	}
	if _, err := m.browser.Type(ctx, "Type a message", message); err != nil {
		return "", fmt.Errorf("type message: %w", err)
	}
	if _, err := m.browser.Press(ctx, "enter"); err != nil {
		return "", fmt.Errorf("send message: %w", err)
	}
	return fmt.Sprintf("💬 Sent to %s on WhatsApp Web: %q", contact, message), nil
}
