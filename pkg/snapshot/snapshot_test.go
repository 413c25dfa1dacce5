// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package snapshot_test

import (
	"encoding/base64"
	"image"
	"image/color"
	"net/url"
	"strings"
	"testing"

	"github.com/go-shiori/dom"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/neokraft-labs/domsnap/pkg/dataurl"
	"github.com/neokraft-labs/domsnap/pkg/livedom"
	"github.com/neokraft-labs/domsnap/pkg/snapshot"
)

func parseDoc(t *testing.T, src, base string) *livedom.Document {
	t.Helper()
	var bu *url.URL
	if base != "" {
		u, err := url.Parse(base)
		require.NoError(t, err)
		bu = u
	}
	doc, err := snapshot.ParseDocument(strings.NewReader(src), bu)
	require.NoError(t, err)
	return doc
}

func freshOpts() *snapshot.Options {
	opts := snapshot.DefaultOptions()
	opts.IDGenerator = snapshot.NewIDGenerator()
	return opts
}

func liveElement(t *testing.T, doc *livedom.Document, tag string) *html.Node {
	t.Helper()
	nodes := dom.GetElementsByTagName(doc.Root, tag)
	require.NotEmpty(t, nodes, "no <%s> in document", tag)
	return nodes[0]
}

func findElement(sn *snapshot.SerializedNode, tag string) *snapshot.SerializedNode {
	if sn == nil {
		return nil
	}
	if sn.Type == snapshot.NodeElement && sn.TagName == tag {
		return sn
	}
	for _, c := range sn.ChildNodes {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func collectIDs(sn *snapshot.SerializedNode, ids *[]int) {
	if sn == nil {
		return
	}
	*ids = append(*ids, sn.ID)
	for _, c := range sn.ChildNodes {
		collectIDs(c, ids)
	}
}

func decodeBase64(t *testing.T, s string) []byte {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(s)
	require.NoError(t, err)
	return raw
}

func TestSnapshotSimpleElement(t *testing.T) {
	assert := require.New(t)

	doc := parseDoc(t, `<div class="a" data-x="1">hi</div>`, "")
	sn := snapshot.Snapshot(doc, freshOpts())
	assert.NotNil(sn)
	assert.Equal(snapshot.NodeDocument, sn.Type)
	assert.Equal(1, sn.ID)
	assert.Zero(sn.RootID)

	div := findElement(sn, "div")
	assert.NotNil(div)
	assert.Equal(map[string]any{"class": "a", "data-x": "1"}, div.Attributes)
	assert.Len(div.ChildNodes, 1)
	assert.Equal(snapshot.NodeText, div.ChildNodes[0].Type)
	assert.Equal("hi", div.ChildNodes[0].TextContent)

	// Pre-order assignment: a parent's ID is smaller than its children's.
	assert.Greater(div.ChildNodes[0].ID, div.ID)
	assert.Greater(div.ID, sn.ID)
}

func TestSnapshotBlockedElement(t *testing.T) {
	assert := require.New(t)

	doc := parseDoc(t, `<div class="rr-block"><span>secret markup</span></div>`, "")
	doc.SetBoxSize(liveElement(t, doc, "div"), livedom.BoxSize{Width: 100, Height: 50})

	sn := snapshot.Snapshot(doc, freshOpts())
	div := findElement(sn, "div")
	assert.NotNil(div)
	assert.True(div.NeedBlock)
	assert.Empty(div.ChildNodes)
	assert.Equal(map[string]any{
		"class":     "rr-block",
		"rr_width":  "100px",
		"rr_height": "50px",
	}, div.Attributes)
}

func TestSnapshotMaskedText(t *testing.T) {
	assert := require.New(t)

	doc := parseDoc(t, `<p class="rr-mask">Secret</p><p>plain</p>`, "")
	sn := snapshot.Snapshot(doc, freshOpts())

	masked := findElement(sn, "p")
	assert.NotNil(masked)
	assert.Equal("******", masked.ChildNodes[0].TextContent)

	body := findElement(sn, "body")
	assert.Len(body.ChildNodes, 2)
	assert.Equal("plain", body.ChildNodes[1].ChildNodes[0].TextContent)
}

func TestSnapshotMaskTextFn(t *testing.T) {
	assert := require.New(t)

	doc := parseDoc(t, `<p class="rr-mask">Secret</p>`, "")
	opts := freshOpts()
	opts.MaskTextFn = func(text string, _ *html.Node) string {
		return "[" + strings.ToLower(text) + "]"
	}
	sn := snapshot.Snapshot(doc, opts)
	assert.Equal("[secret]", findElement(sn, "p").ChildNodes[0].TextContent)
}

func TestSnapshotStyleAbsolutization(t *testing.T) {
	assert := require.New(t)

	doc := parseDoc(t,
		`<html><head><style>.a{background:url(img/x.png)}</style></head><body></body></html>`,
		"http://h/a/b/c.html")
	sn := snapshot.Snapshot(doc, freshOpts())

	style := findElement(sn, "style")
	assert.NotNil(style)
	assert.Len(style.ChildNodes, 1)
	text := style.ChildNodes[0]
	assert.True(text.IsStyle)
	assert.Contains(text.TextContent, "url(http://h/a/b/img/x.png)")
}

func TestSnapshotIframe(t *testing.T) {
	assert := require.New(t)

	parent := parseDoc(t, `<iframe src="child.html"></iframe>`, "http://h/")
	child := parseDoc(t, `<p>X</p>`, "http://h/child.html")
	iframe := liveElement(t, parent, "iframe")
	parent.SetContentDocument(iframe, child)

	opts := freshOpts()
	var got *snapshot.SerializedNode
	opts.OnIframeLoad = func(_ *html.Node, sn *snapshot.SerializedNode) {
		got = sn
	}

	sn, err := snapshot.SnapshotAndWait(parent, opts)
	assert.NoError(err)
	assert.NotNil(sn)
	assert.NotNil(got)

	// The iframe keeps its src since its content document is reachable.
	sframe := findElement(sn, "iframe")
	assert.Equal("http://h/child.html", sframe.Attributes["src"])
	assert.Nil(sframe.Attributes["rr_src"])

	assert.Equal(snapshot.NodeDocument, got.Type)
	assert.Equal(got.ID, got.RootID)

	p := findElement(got, "p")
	assert.NotNil(p)
	assert.Equal(got.ID, p.RootID)
	assert.Equal("X", p.ChildNodes[0].TextContent)

	// Sub-document IDs continue the outer walk's counter.
	var outer []int
	collectIDs(sn, &outer)
	for _, id := range outer {
		assert.Greater(got.ID, id)
	}
}

func TestSnapshotIframeSrcSuppressed(t *testing.T) {
	assert := require.New(t)

	// No reachable content document: src moves to rr_src so replay never
	// navigates on its own.
	doc := parseDoc(t, `<iframe src="https://other.example/page"></iframe>`, "http://h/")
	sn := snapshot.Snapshot(doc, freshOpts())

	sframe := findElement(sn, "iframe")
	assert.Nil(sframe.Attributes["src"])
	assert.Equal("https://other.example/page", sframe.Attributes["rr_src"])
}

func TestSnapshotIframeKeepSrcFn(t *testing.T) {
	assert := require.New(t)

	doc := parseDoc(t, `<iframe src="https://other.example/page"></iframe>`, "http://h/")
	opts := freshOpts()
	opts.KeepIframeSrcFn = func(string) bool { return true }
	sn := snapshot.Snapshot(doc, opts)

	sframe := findElement(sn, "iframe")
	assert.Equal("https://other.example/page", sframe.Attributes["src"])
	assert.Nil(sframe.Attributes["rr_src"])
}

func TestSnapshotCanvas(t *testing.T) {
	assert := require.New(t)

	blank := image.NewRGBA(image.Rect(0, 0, 10, 10))
	blankURL, err := dataurl.Encode(blank, dataurl.Options{})
	assert.NoError(err)

	drawn := image.NewRGBA(image.Rect(0, 0, 10, 10))
	drawn.Set(3, 3, color.RGBA{R: 255, A: 255})
	drawnURL, err := dataurl.Encode(drawn, dataurl.Options{})
	assert.NoError(err)

	t.Run("blank 2d canvas", func(t *testing.T) {
		assert := require.New(t)
		doc := parseDoc(t, `<canvas width="10" height="10"></canvas>`, "")
		doc.SetCanvasState(liveElement(t, doc, "canvas"), livedom.CanvasState{
			Context: "2d",
			DataURL: blankURL,
		})
		opts := freshOpts()
		opts.RecordCanvas = true
		sn := snapshot.Snapshot(doc, opts)
		assert.Nil(findElement(sn, "canvas").Attributes["rr_dataURL"])
	})

	t.Run("drawn 2d canvas", func(t *testing.T) {
		assert := require.New(t)
		doc := parseDoc(t, `<canvas width="10" height="10"></canvas>`, "")
		doc.SetCanvasState(liveElement(t, doc, "canvas"), livedom.CanvasState{
			Context: "2d",
			DataURL: drawnURL,
		})
		opts := freshOpts()
		opts.RecordCanvas = true
		sn := snapshot.Snapshot(doc, opts)
		u, _ := findElement(sn, "canvas").Attributes["rr_dataURL"].(string)
		assert.True(strings.HasPrefix(u, "data:image/png;base64,"))
	})

	t.Run("unknown context compared against blank", func(t *testing.T) {
		assert := require.New(t)
		doc := parseDoc(t, `<canvas width="10" height="10"></canvas>`, "")
		doc.SetCanvasState(liveElement(t, doc, "canvas"), livedom.CanvasState{
			DataURL: drawnURL,
		})
		opts := freshOpts()
		opts.RecordCanvas = true
		sn := snapshot.Snapshot(doc, opts)
		assert.NotNil(findElement(sn, "canvas").Attributes["rr_dataURL"])
	})

	t.Run("canvas recording off", func(t *testing.T) {
		assert := require.New(t)
		doc := parseDoc(t, `<canvas width="10" height="10"></canvas>`, "")
		doc.SetCanvasState(liveElement(t, doc, "canvas"), livedom.CanvasState{
			Context: "2d",
			DataURL: drawnURL,
		})
		sn := snapshot.Snapshot(doc, freshOpts())
		assert.Nil(findElement(sn, "canvas").Attributes["rr_dataURL"])
	})
}

func TestSnapshotIDInvariants(t *testing.T) {
	assert := require.New(t)

	doc := parseDoc(t, `<div><p>a</p><p>b</p><span><em>c</em></span></div>`, "")
	opts := freshOpts()
	sn := snapshot.Snapshot(doc, opts)

	var ids []int
	collectIDs(sn, &ids)
	seen := map[int]bool{}
	for _, id := range ids {
		assert.Positive(id)
		assert.False(seen[id], "duplicate id %d", id)
		seen[id] = true
	}

	// Every visited live node ends up in the mirror.
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		assert.True(opts.Mirror.HasNode(n))
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc.Root)
}

func TestSnapshotReserializeKeepsIDs(t *testing.T) {
	assert := require.New(t)

	doc := parseDoc(t, `<div>hi</div>`, "")
	opts := freshOpts()

	first := snapshot.Snapshot(doc, opts)
	second := snapshot.Snapshot(doc, opts)

	assert.Equal(first.ID, second.ID)
	assert.Equal(findElement(first, "div").ID, findElement(second, "div").ID)
}

func TestSnapshotIgnoredNodesAreMirrored(t *testing.T) {
	assert := require.New(t)

	doc := parseDoc(t, `<div><!-- gone --><p>kept</p></div>`, "")
	opts := freshOpts()
	opts.SlimDOM.Comment = true
	sn := snapshot.Snapshot(doc, opts)

	div := findElement(sn, "div")
	assert.Len(div.ChildNodes, 1)
	assert.Equal(snapshot.NodeElement, div.ChildNodes[0].Type)

	var comment *html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.CommentNode {
			comment = n
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc.Root)
	assert.NotNil(comment)
	assert.True(opts.Mirror.HasNode(comment))
	assert.Equal(snapshot.IgnoredNode, opts.Mirror.GetID(comment))
}

func TestSnapshotScriptPlaceholder(t *testing.T) {
	assert := require.New(t)

	doc := parseDoc(t, `<body><script>var secret = 1;</script></body>`, "")
	sn := snapshot.Snapshot(doc, freshOpts())

	script := findElement(sn, "script")
	assert.NotNil(script)
	assert.Equal("SCRIPT_PLACEHOLDER", script.ChildNodes[0].TextContent)
}

func TestSnapshotInputMasking(t *testing.T) {
	assert := require.New(t)

	doc := parseDoc(t, `<form><input type="password" name="pw"><input type="text" name="q"></form>`, "")
	inputs := dom.GetElementsByTagName(doc.Root, "input")
	require.Len(t, inputs, 2)
	doc.SetInputState(inputs[0], livedom.InputState{Value: "hunter2"})
	doc.SetInputState(inputs[1], livedom.InputState{Value: "query"})

	sn := snapshot.Snapshot(doc, freshOpts())
	form := findElement(sn, "form")
	assert.NotNil(form)

	pw := form.ChildNodes[0]
	q := form.ChildNodes[1]
	assert.Equal("*******", pw.Attributes["value"])
	assert.Equal("query", q.Attributes["value"])
}

func TestSnapshotMaskAllInputs(t *testing.T) {
	assert := require.New(t)

	doc := parseDoc(t, `<input type="text">`, "")
	doc.SetInputState(liveElement(t, doc, "input"), livedom.InputState{Value: "abc"})

	opts := freshOpts().WithMaskAllInputs()
	sn := snapshot.Snapshot(doc, opts)
	assert.Equal("***", findElement(sn, "input").Attributes["value"])
}

func TestSnapshotCheckbox(t *testing.T) {
	assert := require.New(t)

	doc := parseDoc(t, `<input type="checkbox">`, "")
	doc.SetInputState(liveElement(t, doc, "input"), livedom.InputState{Checked: true})

	sn := snapshot.Snapshot(doc, freshOpts())
	input := findElement(sn, "input")
	assert.Equal(true, input.Attributes["checked"])
	assert.Nil(input.Attributes["value"])
}

func TestSnapshotOptionSelected(t *testing.T) {
	assert := require.New(t)

	doc := parseDoc(t,
		`<select><option value="a" selected>A</option><option value="b">B</option></select>`, "")
	options := dom.GetElementsByTagName(doc.Root, "option")
	require.Len(t, options, 2)
	doc.SetInputState(options[1], livedom.InputState{Selected: true})

	sn := snapshot.Snapshot(doc, freshOpts())
	sel := findElement(sn, "select")
	assert.Len(sel.ChildNodes, 2)

	// The HTML attribute reflects the initial value and is dropped; only
	// the live selection is recorded.
	assert.Nil(sel.ChildNodes[0].Attributes["selected"])
	assert.Equal(true, sel.ChildNodes[1].Attributes["selected"])
}

func TestSnapshotTextareaValueSkipsChildren(t *testing.T) {
	assert := require.New(t)

	doc := parseDoc(t, `<textarea>initial</textarea>`, "")
	doc.SetInputState(liveElement(t, doc, "textarea"), livedom.InputState{Value: "live text"})

	sn := snapshot.Snapshot(doc, freshOpts())
	ta := findElement(sn, "textarea")
	assert.Equal("live text", ta.Attributes["value"])
	assert.Empty(ta.ChildNodes)
}

func TestSnapshotShadowRoot(t *testing.T) {
	assert := require.New(t)

	doc := parseDoc(t, `<div id="host"></div>`, "")
	host := liveElement(t, doc, "div")

	span := &html.Node{Type: html.ElementNode, Data: "span"}
	span.AppendChild(&html.Node{Type: html.TextNode, Data: "shadow"})
	content := &html.Node{Type: html.DocumentNode}
	content.AppendChild(span)
	doc.AttachShadowRoot(host, &livedom.ShadowRoot{Mode: "open", Native: true, Content: content})

	sn := snapshot.Snapshot(doc, freshOpts())
	shost := findElement(sn, "div")
	assert.True(shost.IsShadowHost)
	assert.Len(shost.ChildNodes, 1)
	assert.True(shost.ChildNodes[0].IsShadow)
	assert.Equal("shadow", shost.ChildNodes[0].ChildNodes[0].TextContent)
}

func TestSnapshotPolyfillShadowRoot(t *testing.T) {
	assert := require.New(t)

	doc := parseDoc(t, `<div id="host"></div>`, "")
	host := liveElement(t, doc, "div")

	span := &html.Node{Type: html.ElementNode, Data: "span"}
	content := &html.Node{Type: html.DocumentNode}
	content.AppendChild(span)
	doc.AttachShadowRoot(host, &livedom.ShadowRoot{Mode: "open", Native: false, Content: content})

	sn := snapshot.Snapshot(doc, freshOpts())
	shost := findElement(sn, "div")
	assert.True(shost.IsShadowHost)
	assert.Len(shost.ChildNodes, 1)
	assert.False(shost.ChildNodes[0].IsShadow)
}

func TestSnapshotCustomElement(t *testing.T) {
	assert := require.New(t)

	doc := parseDoc(t, `<my-widget>x</my-widget>`, "")
	doc.RegisterCustomElement("my-widget")

	sn := snapshot.Snapshot(doc, freshOpts())
	widget := findElement(sn, "my-widget")
	assert.NotNil(widget)
	assert.True(widget.IsCustom)
}

func TestSnapshotScrollState(t *testing.T) {
	assert := require.New(t)

	doc := parseDoc(t, `<div id="a">x</div><div id="b">y</div>`, "")
	divs := dom.GetElementsByTagName(doc.Root, "div")
	require.Len(t, divs, 2)
	doc.SetScrollState(divs[0], livedom.ScrollState{Left: 10, Top: 200})
	doc.SetScrollState(divs[1], livedom.ScrollState{Left: 5, Top: 5})
	doc.MarkNewlyAdded(divs[1])

	sn := snapshot.Snapshot(doc, freshOpts())
	body := findElement(sn, "body")
	assert.Equal(10, body.ChildNodes[0].Attributes["rr_scrollLeft"])
	assert.Equal(200, body.ChildNodes[0].Attributes["rr_scrollTop"])

	// Newly added elements always scroll 0; nothing is captured for them.
	assert.Nil(body.ChildNodes[1].Attributes["rr_scrollLeft"])
}

func TestSnapshotMediaState(t *testing.T) {
	assert := require.New(t)

	doc := parseDoc(t, `<video src="v.mp4" autoplay></video>`, "http://h/")
	doc.SetMediaState(liveElement(t, doc, "video"), livedom.MediaState{
		CurrentTime:  12.5,
		Volume:       0.8,
		PlaybackRate: 1.5,
		Paused:       false,
		Muted:        true,
		Loop:         false,
	})

	sn := snapshot.Snapshot(doc, freshOpts())
	video := findElement(sn, "video")
	assert.Equal("playing", video.Attributes["rr_mediaState"])
	assert.Equal(12.5, video.Attributes["rr_mediaCurrentTime"])
	assert.Equal(1.5, video.Attributes["rr_mediaPlaybackRate"])
	assert.Equal(true, video.Attributes["rr_mediaMuted"])
	assert.Equal(false, video.Attributes["rr_mediaLoop"])
	assert.Equal(0.8, video.Attributes["rr_mediaVolume"])

	// autoplay is never reproduced.
	assert.Nil(video.Attributes["autoplay"])
	assert.Equal("http://h/v.mp4", video.Attributes["src"])
}

func TestSnapshotHeadWhitespace(t *testing.T) {
	assert := require.New(t)

	doc := parseDoc(t,
		"<html><head>\n<title>t</title>\n</head><body> <p>x</p></body></html>", "")
	opts := freshOpts()
	opts.PreserveWhiteSpace = true
	opts.SlimDOM.HeadWhitespace = true

	sn := snapshot.Snapshot(doc, opts)

	head := findElement(sn, "head")
	for _, c := range head.ChildNodes {
		assert.NotEqual(snapshot.NodeText, c.Type)
	}

	body := findElement(sn, "body")
	assert.Equal(snapshot.NodeText, body.ChildNodes[0].Type)
}

func TestSnapshotLinkStylesheetInline(t *testing.T) {
	assert := require.New(t)

	doc := parseDoc(t,
		`<html><head><link rel="stylesheet" href="a/style.css"></head><body></body></html>`,
		"http://h/")
	link := liveElement(t, doc, "link")
	doc.SetStylesheetState(link, livedom.StylesheetState{
		Reachable: true,
		CSSText:   ".x{background:url(i.png)}",
	})

	sn := snapshot.Snapshot(doc, freshOpts())
	slink := findElement(sn, "link")
	assert.Nil(slink.Attributes["rel"])
	assert.Nil(slink.Attributes["href"])
	assert.Equal(".x{background:url(http://h/a/i.png)}", slink.Attributes["_cssText"])
}

func TestSnapshotLinkStylesheetCrossOrigin(t *testing.T) {
	assert := require.New(t)

	doc := parseDoc(t,
		`<html><head><link rel="stylesheet" href="https://cdn.example/s.css"></head><body></body></html>`,
		"http://h/")
	doc.SetStylesheetState(liveElement(t, doc, "link"), livedom.StylesheetState{Reachable: false})

	sn := snapshot.Snapshot(doc, freshOpts())
	slink := findElement(sn, "link")
	assert.Equal("stylesheet", slink.Attributes["rel"])
	assert.Equal("https://cdn.example/s.css", slink.Attributes["href"])
	assert.Nil(slink.Attributes["_cssText"])
}

func TestSnapshotStylesheetAsyncHook(t *testing.T) {
	assert := require.New(t)

	doc := parseDoc(t,
		`<html><head><link rel="stylesheet" href="late.css"></head><body></body></html>`,
		"http://h/")
	link := liveElement(t, doc, "link")

	opts := freshOpts()
	var got *snapshot.SerializedNode
	opts.OnStylesheetLoad = func(_ *html.Node, sn *snapshot.SerializedNode) {
		got = sn
	}

	w := snapshot.NewWalker(opts)
	sn := w.SerializeNodeWithId(doc.Root, doc, 0)
	assert.NotNil(sn)

	// The sheet loads after the synchronous walk returned.
	doc.SetStylesheetState(link, livedom.StylesheetState{
		Reachable: true,
		CSSText:   "p{color:red}",
	})
	doc.SignalStylesheetLoaded(link)

	assert.NoError(w.Wait())
	assert.NotNil(got)
	assert.Equal("p{color:red}", got.Attributes["_cssText"])
	assert.Equal(findElement(sn, "link").ID, got.ID)
}

func TestSnapshotInlineImage(t *testing.T) {
	assert := require.New(t)

	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(0, 0, color.RGBA{B: 255, A: 255})
	pngURL, err := dataurl.Encode(img, dataurl.Options{})
	assert.NoError(err)
	_, payload, ok := strings.Cut(pngURL, ",")
	require.True(t, ok)
	raw := decodeBase64(t, payload)

	t.Run("captured bytes", func(t *testing.T) {
		assert := require.New(t)
		doc := parseDoc(t, `<img src="x.png">`, "http://h/")
		doc.SetImageState(liveElement(t, doc, "img"), livedom.ImageState{Data: raw})

		opts := freshOpts()
		opts.InlineImages = true
		sn := snapshot.Snapshot(doc, opts)
		u, _ := findElement(sn, "img").Attributes["rr_dataURL"].(string)
		assert.True(strings.HasPrefix(u, "data:image/png;base64,"))
	})

	t.Run("tainted first capture falls back once", func(t *testing.T) {
		assert := require.New(t)
		doc := parseDoc(t, `<img src="x.png">`, "http://h/")
		doc.SetImageState(liveElement(t, doc, "img"), livedom.ImageState{
			Data:          []byte("not an image"),
			AnonymousData: raw,
		})

		opts := freshOpts()
		opts.InlineImages = true
		sn := snapshot.Snapshot(doc, opts)
		assert.NotNil(findElement(sn, "img").Attributes["rr_dataURL"])
	})

	t.Run("tainted twice reports and omits", func(t *testing.T) {
		assert := require.New(t)
		doc := parseDoc(t, `<img src="x.png">`, "http://h/")
		doc.SetImageState(liveElement(t, doc, "img"), livedom.ImageState{
			Data:          []byte("not an image"),
			AnonymousData: []byte("still not an image"),
		})

		opts := freshOpts()
		opts.InlineImages = true
		var sites []string
		opts.OnError = func(site string, _ error) { sites = append(sites, site) }
		sn := snapshot.Snapshot(doc, opts)
		assert.Nil(findElement(sn, "img").Attributes["rr_dataURL"])
		assert.Contains(sites, "serializer.inline-image")
	})
}

func TestSnapshotFormRewrite(t *testing.T) {
	assert := require.New(t)

	doc := parseDoc(t, `<form action="/x"><input name="a"></form>`, "")
	sn := snapshot.Snapshot(doc, freshOpts())
	assert.NotNil(findElement(sn, "form"))
}

func TestSnapshotOnSerialize(t *testing.T) {
	assert := require.New(t)

	doc := parseDoc(t, `<div><p>a</p></div>`, "")
	opts := freshOpts()
	count := 0
	opts.OnSerialize = func(*html.Node) { count++ }
	snapshot.Snapshot(doc, opts)
	// document, html, head, body, div, p, text
	assert.Equal(7, count)
}

func TestCleanupSnapshotResetsCounter(t *testing.T) {
	assert := require.New(t)

	doc := parseDoc(t, `<div>x</div>`, "")
	opts := snapshot.DefaultOptions()
	opts.IDGenerator = nil

	snapshot.CleanupSnapshot()
	first := snapshot.Snapshot(doc, opts)
	assert.Equal(1, first.ID)

	snapshot.CleanupSnapshot()
	doc2 := parseDoc(t, `<div>y</div>`, "")
	opts2 := snapshot.DefaultOptions()
	opts2.IDGenerator = nil
	second := snapshot.Snapshot(doc2, opts2)
	assert.Equal(1, second.ID)
}
