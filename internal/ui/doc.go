// Package ui renders discovery sessions in the terminal.
//
// Two styles of output are provided. The one-shot components (Header,
// Result, device tables) print a finished scan and exit, the way
// `smartdevice scan` does by default. ScanModel is a Bubble Tea program
// that redraws a running session until it stops or the user quits:
//
//	sess := session.New(session.Options{Timeout: 30 * time.Second})
//	go discovery.Run(ctx, src, sess)
//
//	model := ui.NewScanModel(sess, src.Name(), reg.Nickname)
//	if err := ui.RunScan(ctx, model); err != nil {
//		return err
//	}
//
// The live view never feeds the session itself. Pressing "s" stops the
// scan explicitly; "q" leaves the view and the caller decides what happens
// to the scan.
//
// All styles live in styles.go and share one palette so the CLI output and
// the live view look alike.
package ui
