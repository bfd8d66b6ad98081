package handler

import (
	"github.com/dolgo/server/internal/dialog"
	"github.com/dolgo/server/internal/net"
	"github.com/dolgo/server/internal/net/packet"
)

// HandleDialogResponse processes C_DIALOG_RESPONSE.
// Format: [2B data1][2B data2][2B data3][2B data4][1B code][1B response]
// data1 echoes the correlation value sent with the dialog.
func HandleDialogResponse(sess *net.Session, f *packet.Frame, deps *Deps) error {
	data1, err := f.ReadShort()
	if err != nil {
		return err
	}
	if err := f.Skip(6); err != nil {
		return err
	}
	code, err := f.ReadByte()
	if err != nil {
		return err
	}
	resp, err := f.ReadByte()
	if err != nil {
		return err
	}

	p, err := playerFor(sess, deps)
	if err != nil {
		return err
	}
	key := dialog.Key{Kind: dialog.Kind(code), Correlation: uint32(data1)}
	return inRegion(deps, p, "dialog response", func() error {
		deps.Dialogs.Resolve(sess.ID(), key, dialog.Response(resp))
		return nil
	})
}

// HandleCheckLOSResponse processes C_CHECK_LOS_RESPONSE.
// Format: [2B checker oid][2B target oid][2B response][2B unused]
func HandleCheckLOSResponse(sess *net.Session, f *packet.Frame, deps *Deps) error {
	checker, err := f.ReadShort()
	if err != nil {
		return err
	}
	target, err := f.ReadShort()
	if err != nil {
		return err
	}
	resp, err := f.ReadShort()
	if err != nil {
		return err
	}
	if err := f.Skip(2); err != nil {
		return err
	}

	p, err := playerFor(sess, deps)
	if err != nil {
		return err
	}
	key := dialog.LOSKey(checker, target)
	return inRegion(deps, p, "los response", func() error {
		deps.Dialogs.Resolve(sess.ID(), key, dialog.Response(resp))
		return nil
	})
}
