package scripts

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/xpath"
	"github.com/dop251/goja"
	"golang.org/x/net/html"
)

// PodmillAPI provides the host API that scripts can use. It is injected
// into the VM as a global `podmill` object with fetch, parseHTML,
// xpath, log and config members.
type PodmillAPI struct {
	scriptID string
	vm       *goja.Runtime
}

// NewPodmillAPI creates a new host API instance for a script.
func NewPodmillAPI(scriptID string) *PodmillAPI {
	return &PodmillAPI{scriptID: scriptID}
}

// Inject injects the podmill API into a goja runtime.
func (p *PodmillAPI) Inject(vm *goja.Runtime) {
	p.vm = vm
	podmill := vm.NewObject()

	podmill.Set("fetch", p.fetch)
	podmill.Set("parseHTML", p.parseHTML)
	podmill.Set("xpath", p.xpathQuery)
	podmill.Set("log", p.logMessage)

	// Configuration (set from the manifest by the runtime)
	podmill.Set("config", vm.NewObject())

	vm.Set("podmill", podmill)
}

// SetConfig sets the script configuration on the podmill object.
func (p *PodmillAPI) SetConfig(vm *goja.Runtime, config map[string]interface{}) {
	podmill := vm.Get("podmill").ToObject(vm)
	configObj := vm.NewObject()
	for k, v := range config {
		configObj.Set(k, p.goToJS(vm, v))
	}
	podmill.Set("config", configObj)
}

// fetch performs a synchronous HTTP request. Options may carry method,
// headers, body and a timeout in seconds.
func (p *PodmillAPI) fetch(call goja.FunctionCall) goja.Value {
	vm := p.vm
	url := call.Argument(0).String()

	if url == "" {
		vm.Interrupt("fetch error: URL is required")
		return goja.Undefined()
	}

	var options map[string]interface{}
	if len(call.Arguments) > 1 && !goja.IsUndefined(call.Argument(1)) {
		if exported, ok := call.Argument(1).ToObject(vm).Export().(map[string]interface{}); ok {
			options = exported
		}
	}

	method := "GET"
	timeout := 30 * time.Second
	var body io.Reader
	contentType := ""

	if options != nil {
		if m, ok := options["method"].(string); ok && m != "" {
			method = strings.ToUpper(m)
		}
		if timeoutVal, ok := options["timeout"]; ok {
			if timeoutSec, ok := timeoutVal.(float64); ok {
				timeout = time.Duration(timeoutSec) * time.Second
			} else if timeoutSec, ok := timeoutVal.(int64); ok {
				timeout = time.Duration(timeoutSec) * time.Second
			}
		}
		if bodyVal, ok := options["body"]; ok && bodyVal != nil {
			if bodyStr, ok := bodyVal.(string); ok {
				body = strings.NewReader(bodyStr)
				contentType = "text/plain"
			} else {
				jsonData, err := json.Marshal(bodyVal)
				if err != nil {
					vm.Interrupt(fmt.Sprintf("fetch error: failed to marshal request body for '%s': %v", url, err))
					return goja.Undefined()
				}
				body = strings.NewReader(string(jsonData))
				contentType = "application/json"
			}
		}
	}

	client := &http.Client{Timeout: timeout}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		vm.Interrupt(fmt.Sprintf("fetch error: failed to create request for URL '%s': %v", url, err))
		return goja.Undefined()
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if options != nil {
		if headers, ok := options["headers"].(map[string]interface{}); ok {
			for k, v := range headers {
				req.Header.Set(k, fmt.Sprint(v))
			}
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		vm.Interrupt(fmt.Sprintf("fetch error: request to '%s' failed: %v", url, err))
		return goja.Undefined()
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		vm.Interrupt(fmt.Sprintf("fetch error: failed to read response body from '%s': %v", url, err))
		return goja.Undefined()
	}

	// Try to parse as JSON; fall back to text
	var data interface{}
	if err := json.Unmarshal(respBody, &data); err != nil {
		data = string(respBody)
	}

	respObj := vm.NewObject()
	respObj.Set("status", resp.StatusCode)
	respObj.Set("statusText", resp.Status)
	respObj.Set("headers", p.headersToJS(vm, resp.Header))
	respObj.Set("data", p.goToJS(vm, data))
	respObj.Set("text", func() string { return string(respBody) })

	return respObj
}

// logMessage writes a script log line under the script's ID.
func (p *PodmillAPI) logMessage(call goja.FunctionCall) goja.Value {
	args := make([]interface{}, len(call.Arguments))
	for i, arg := range call.Arguments {
		args[i] = arg.Export()
	}
	log.Printf("[script %s] %v", p.scriptID, fmt.Sprint(args...))
	return goja.Undefined()
}

// GoToJS converts a Go value to a goja value (exported for use in runtime).
func (p *PodmillAPI) GoToJS(vm *goja.Runtime, v interface{}) goja.Value {
	return p.goToJS(vm, v)
}

func (p *PodmillAPI) goToJS(vm *goja.Runtime, v interface{}) goja.Value {
	if v == nil {
		return goja.Null()
	}

	switch val := v.(type) {
	case string:
		return vm.ToValue(val)
	case int:
		return vm.ToValue(val)
	case int64:
		return vm.ToValue(int(val))
	case float64:
		return vm.ToValue(val)
	case bool:
		return vm.ToValue(val)
	case []interface{}:
		arr := vm.NewArray(len(val))
		for i, item := range val {
			arr.Set(fmt.Sprintf("%d", i), p.goToJS(vm, item))
		}
		return arr
	case map[string]interface{}:
		obj := vm.NewObject()
		for k, v := range val {
			obj.Set(k, p.goToJS(vm, v))
		}
		return obj
	default:
		return vm.ToValue(val)
	}
}

func (p *PodmillAPI) headersToJS(vm *goja.Runtime, headers http.Header) goja.Value {
	headerMap := make(map[string]interface{})
	for k, v := range headers {
		if len(v) > 0 {
			headerMap[strings.ToLower(k)] = v[0]
		}
	}
	return p.goToJS(vm, headerMap)
}

// HTML parsing utilities

// documentWrapper wraps a goquery document for JavaScript access.
type documentWrapper struct {
	doc *goquery.Document
	vm  *goja.Runtime
	api *PodmillAPI
}

// parseHTML parses an HTML string and returns a document object with
// querySelector and querySelectorAll methods.
func (p *PodmillAPI) parseHTML(call goja.FunctionCall) goja.Value {
	vm := p.vm
	htmlStr := call.Argument(0).String()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		vm.Interrupt(fmt.Sprintf("parseHTML error: failed to parse HTML: %v", err))
		return goja.Undefined()
	}

	wrapper := &documentWrapper{doc: doc, vm: vm, api: p}

	docObj := vm.NewObject()
	docObj.Set("querySelector", func(selector string) goja.Value {
		return wrapper.querySelector(selector)
	})
	docObj.Set("querySelectorAll", func(selector string) goja.Value {
		return wrapper.querySelectorAll(selector)
	})
	// Keep the raw HTML around for XPath queries
	docObj.Set("_html", htmlStr)

	return docObj
}

func (d *documentWrapper) querySelector(selector string) goja.Value {
	selection := d.doc.Find(selector).First()
	if selection.Length() == 0 {
		return d.vm.ToValue(nil)
	}
	return d.api.elementToJS(d.vm, selection)
}

func (d *documentWrapper) querySelectorAll(selector string) goja.Value {
	selection := d.doc.Find(selector)
	return d.api.selectionToJS(d.vm, selection)
}

// xpathQuery executes an XPath query against a document produced by
// parseHTML, or against a raw HTML string.
func (p *PodmillAPI) xpathQuery(call goja.FunctionCall) goja.Value {
	vm := p.vm

	if len(call.Arguments) < 2 {
		vm.Interrupt("xpath error: requires a document (from parseHTML) or HTML string, and an XPath expression")
		return goja.Undefined()
	}

	docVal := call.Argument(0)
	xpathExpr := call.Argument(1).String()

	htmlStr := ""
	if docObj := docVal.ToObject(vm); docObj != nil {
		if htmlVal := docObj.Get("_html"); htmlVal != nil && !goja.IsUndefined(htmlVal) {
			htmlStr = htmlVal.String()
		}
	}
	if htmlStr == "" {
		htmlStr = docVal.String()
	}

	if htmlStr == "" || xpathExpr == "" {
		vm.Interrupt("xpath error: HTML and XPath expression are required")
		return goja.Undefined()
	}

	doc, err := html.Parse(strings.NewReader(htmlStr))
	if err != nil {
		vm.Interrupt(fmt.Sprintf("xpath error: failed to parse HTML: %v", err))
		return goja.Undefined()
	}

	nav := createHTMLNavigator(doc)

	expr, err := xpath.Compile(xpathExpr)
	if err != nil {
		vm.Interrupt(fmt.Sprintf("xpath error: failed to compile XPath expression '%s': %v", xpathExpr, err))
		return goja.Undefined()
	}

	iter := expr.Select(nav)
	var nodes []*html.Node
	for iter.MoveNext() {
		if htmlNav, ok := iter.Current().(*htmlNavigator); ok {
			nodes = append(nodes, htmlNav.node)
		}
	}

	var elements []goja.Value
	for _, node := range nodes {
		selection := goquery.NewDocumentFromNode(node).Selection
		elements = append(elements, p.elementToJS(vm, selection))
	}

	arr := vm.NewArray(len(elements))
	for i, elem := range elements {
		arr.Set(fmt.Sprintf("%d", i), elem)
	}
	return arr
}

// elementToJS converts a goquery selection to a JavaScript element object.
func (p *PodmillAPI) elementToJS(vm *goja.Runtime, selection *goquery.Selection) goja.Value {
	element := vm.NewObject()

	element.Set("textContent", selection.Text())

	innerHTML, _ := selection.Html()
	element.Set("innerHTML", innerHTML)

	element.Set("getAttribute", func(name string) goja.Value {
		val, exists := selection.Attr(name)
		if !exists {
			return goja.Undefined()
		}
		return vm.ToValue(val)
	})

	element.Set("querySelector", func(selector string) goja.Value {
		child := selection.Find(selector).First()
		if child.Length() == 0 {
			return vm.ToValue(nil)
		}
		return p.elementToJS(vm, child)
	})

	element.Set("querySelectorAll", func(selector string) goja.Value {
		children := selection.Find(selector)
		return p.selectionToJS(vm, children)
	})

	return element
}

// selectionToJS converts a goquery selection (multiple elements) to a
// JavaScript array.
func (p *PodmillAPI) selectionToJS(vm *goja.Runtime, selection *goquery.Selection) goja.Value {
	var elements []goja.Value
	selection.Each(func(i int, s *goquery.Selection) {
		elements = append(elements, p.elementToJS(vm, s))
	})

	arr := vm.NewArray(len(elements))
	for i, elem := range elements {
		arr.Set(fmt.Sprintf("%d", i), elem)
	}
	return arr
}

// htmlNavigator implements xpath.NodeNavigator over x/net/html nodes.
type htmlNavigator struct {
	node *html.Node
	pos  int
}

func createHTMLNavigator(root *html.Node) *htmlNavigator {
	return &htmlNavigator{node: root, pos: 0}
}

func (h *htmlNavigator) NodeType() xpath.NodeType {
	switch h.node.Type {
	case html.DocumentNode:
		return xpath.RootNode
	case html.ElementNode:
		// pos > 0 means we're iterating attributes
		if h.pos > 0 && h.pos <= len(h.node.Attr) {
			return xpath.AttributeNode
		}
		return xpath.ElementNode
	case html.TextNode:
		return xpath.TextNode
	case html.CommentNode:
		return xpath.CommentNode
	default:
		return xpath.ElementNode
	}
}

func (h *htmlNavigator) LocalName() string {
	if h.node.Type == html.ElementNode {
		if h.pos > 0 && h.pos <= len(h.node.Attr) {
			return h.node.Attr[h.pos-1].Key
		}
		return h.node.Data
	}
	return ""
}

func (h *htmlNavigator) Prefix() string {
	return ""
}

func (h *htmlNavigator) Value() string {
	switch h.node.Type {
	case html.TextNode:
		return h.node.Data
	case html.CommentNode:
		return h.node.Data
	case html.ElementNode:
		if h.pos > 0 && h.pos <= len(h.node.Attr) {
			return h.node.Attr[h.pos-1].Val
		}
	}
	return ""
}

func (h *htmlNavigator) Copy() xpath.NodeNavigator {
	return &htmlNavigator{node: h.node, pos: h.pos}
}

func (h *htmlNavigator) MoveToRoot() {
	for h.node.Parent != nil {
		h.node = h.node.Parent
	}
	h.pos = 0
}

func (h *htmlNavigator) MoveToParent() bool {
	if h.node.Parent != nil {
		h.node = h.node.Parent
		h.pos = 0
		return true
	}
	return false
}

func (h *htmlNavigator) MoveToNextAttribute() bool {
	if h.node.Type == html.ElementNode && h.pos < len(h.node.Attr) {
		h.pos++
		return true
	}
	return false
}

func (h *htmlNavigator) MoveToChild() bool {
	if h.node.FirstChild != nil {
		h.node = h.node.FirstChild
		h.pos = 0
		return true
	}
	return false
}

func (h *htmlNavigator) MoveToFirst() bool {
	if h.node.Parent != nil && h.node.Parent.FirstChild != nil {
		h.node = h.node.Parent.FirstChild
		h.pos = 0
		return true
	}
	return false
}

func (h *htmlNavigator) String() string {
	return h.Value()
}

func (h *htmlNavigator) MoveToNext() bool {
	if h.node.NextSibling != nil {
		h.node = h.node.NextSibling
		h.pos = 0
		return true
	}
	return false
}

func (h *htmlNavigator) MoveToPrevious() bool {
	if h.node.PrevSibling != nil {
		h.node = h.node.PrevSibling
		h.pos = 0
		return true
	}
	return false
}

func (h *htmlNavigator) MoveTo(other xpath.NodeNavigator) bool {
	if o, ok := other.(*htmlNavigator); ok {
		h.node = o.node
		h.pos = o.pos
		return true
	}
	return false
}
