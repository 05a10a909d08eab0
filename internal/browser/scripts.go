// internal/browser/scripts.go
package browser

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// registryJS installs the page-side element registry. Elements get a stable numeric id the
// first time they are resolved; the registry only holds weak references so it never keeps
// detached nodes alive. A navigation discards the registry along with the document.
const registryJS = `
if (!window.__uiverify) {
	const byEl = new WeakMap();
	const byId = new Map();
	let next = 1;

	const implicitRole = (el) => {
		const tag = el.tagName.toLowerCase();
		const type = (el.getAttribute('type') || '').toLowerCase();
		switch (tag) {
		case 'a': case 'area': return el.hasAttribute('href') ? 'link' : '';
		case 'article': return 'article';
		case 'aside': return 'complementary';
		case 'button': return 'button';
		case 'dialog': return 'dialog';
		case 'details': case 'fieldset': case 'optgroup': return 'group';
		case 'figure': return 'figure';
		case 'footer': return el.closest('article,aside,main,nav,section') ? '' : 'contentinfo';
		case 'form': return 'form';
		case 'h1': case 'h2': case 'h3': case 'h4': case 'h5': case 'h6': return 'heading';
		case 'header': return el.closest('article,aside,main,nav,section') ? '' : 'banner';
		case 'hr': return 'separator';
		case 'img': return el.getAttribute('alt') === '' ? 'presentation' : 'img';
		case 'input':
			switch (type) {
			case 'button': case 'submit': case 'reset': case 'image': return 'button';
			case 'checkbox': return el.hasAttribute('switch') ? 'switch' : 'checkbox';
			case 'radio': return 'radio';
			case 'range': return 'slider';
			case 'number': return 'spinbutton';
			case 'search': return el.hasAttribute('list') ? 'combobox' : 'searchbox';
			case 'hidden': case 'file': case 'color': case 'date': case 'datetime-local':
			case 'month': case 'time': case 'week': case 'password': return '';
			default: return el.hasAttribute('list') ? 'combobox' : 'textbox';
			}
		case 'li': return 'listitem';
		case 'main': return 'main';
		case 'menu': case 'ol': case 'ul': return 'list';
		case 'nav': return 'navigation';
		case 'option': return 'option';
		case 'output': return 'status';
		case 'progress': return 'progressbar';
		case 'section': return (el.hasAttribute('aria-label') || el.hasAttribute('aria-labelledby')) ? 'region' : '';
		case 'select': return (el.multiple || el.size > 1) ? 'listbox' : 'combobox';
		case 'table': return 'table';
		case 'tbody': case 'thead': case 'tfoot': return 'rowgroup';
		case 'td': return 'cell';
		case 'th': return el.getAttribute('scope') === 'row' ? 'rowheader' : 'columnheader';
		case 'tr': return 'row';
		case 'textarea': return 'textbox';
		}
		return '';
	};

	const roleOf = (el) => {
		const explicit = (el.getAttribute('role') || '').trim().split(/\s+/)[0];
		return explicit ? explicit.toLowerCase() : implicitRole(el);
	};

	const norm = (s) => (s || '').replace(/\s+/g, ' ').trim();

	const nameFromContentRoles = new Set([
		'button', 'cell', 'checkbox', 'columnheader', 'gridcell', 'heading', 'link', 'menuitem',
		'menuitemcheckbox', 'menuitemradio', 'option', 'radio', 'row', 'rowheader', 'switch',
		'tab', 'tooltip', 'treeitem',
	]);

	const textOf = (node) => {
		if (node.nodeType === Node.TEXT_NODE) return node.textContent;
		if (node.nodeType !== Node.ELEMENT_NODE) return '';
		if (node.getAttribute('aria-hidden') === 'true') return '';
		const style = window.getComputedStyle(node);
		if (style.display === 'none' || style.visibility === 'hidden') return '';
		if (node.hasAttribute('aria-label')) return ' ' + node.getAttribute('aria-label') + ' ';
		if (node.tagName === 'IMG') return ' ' + (node.getAttribute('alt') || '') + ' ';
		let out = '';
		for (const child of node.childNodes) out += textOf(child);
		const display = style.display;
		return display === 'inline' ? out : ' ' + out + ' ';
	};

	const nameOf = (el, role) => {
		const labelledBy = el.getAttribute('aria-labelledby');
		if (labelledBy) {
			const parts = labelledBy.split(/\s+/).map((id) => document.getElementById(id)).filter(Boolean);
			if (parts.length) return norm(parts.map((p) => textOf(p)).join(' '));
		}
		const aria = norm(el.getAttribute('aria-label'));
		if (aria) return aria;
		const tag = el.tagName;
		if (tag === 'INPUT') {
			const type = (el.getAttribute('type') || '').toLowerCase();
			if (type === 'submit' || type === 'reset' || type === 'button') {
				return norm(el.value) || (type === 'submit' ? 'Submit' : type === 'reset' ? 'Reset' : '');
			}
			if (type === 'image') return norm(el.getAttribute('alt'));
		}
		if (el.labels && el.labels.length) {
			return norm(Array.from(el.labels).map((l) => textOf(l)).join(' '));
		}
		if (tag === 'IMG' || tag === 'AREA') return norm(el.getAttribute('alt'));
		if (tag === 'FIELDSET') { const l = el.querySelector('legend'); if (l) return norm(textOf(l)); }
		if (tag === 'TABLE') { const c = el.querySelector('caption'); if (c) return norm(textOf(c)); }
		if (tag === 'FIGURE') { const c = el.querySelector('figcaption'); if (c) return norm(textOf(c)); }
		if (nameFromContentRoles.has(role)) {
			const text = norm(textOf(el));
			if (text) return text;
		}
		return norm(el.getAttribute('title') || el.getAttribute('placeholder'));
	};

	const hiddenFromTree = (el) => {
		for (let n = el; n && n.nodeType === Node.ELEMENT_NODE; n = n.parentElement) {
			if (n.hidden || n.getAttribute('aria-hidden') === 'true') return true;
			const style = window.getComputedStyle(n);
			if (style.display === 'none') return true;
		}
		return window.getComputedStyle(el).visibility === 'hidden';
	};

	const visible = (el) => {
		if (!el.isConnected) return false;
		const rect = el.getBoundingClientRect();
		if (rect.width <= 0 || rect.height <= 0) return false;
		const style = window.getComputedStyle(el);
		return style.visibility !== 'hidden' && style.display !== 'none' && style.opacity !== '0';
	};

	const idOf = (el) => {
		let id = byEl.get(el);
		if (!id) {
			id = next++;
			byEl.set(el, id);
			byId.set(id, new WeakRef(el));
		}
		return id;
	};

	const info = (el) => {
		const role = roleOf(el);
		const rect = el.getBoundingClientRect();
		return {
			id: idOf(el),
			tag: el.tagName.toLowerCase(),
			role: role,
			name: nameOf(el, role),
			classes: Array.from(el.classList),
			visible: visible(el),
			connected: el.isConnected,
			box: { x: rect.x, y: rect.y, width: rect.width, height: rect.height },
		};
	};

	const lookup = (id) => {
		const ref = byId.get(id);
		return ref ? ref.deref() : undefined;
	};

	window.__uiverify = {
		byRole(role, includeHidden) {
			const out = [];
			for (const el of document.querySelectorAll('*')) {
				if (roleOf(el) !== role) continue;
				if (!includeHidden && hiddenFromTree(el)) continue;
				out.push(info(el));
			}
			return out;
		},
		byCSS(selector) {
			return Array.from(document.querySelectorAll(selector)).map(info);
		},
		describe(id) {
			const el = lookup(id);
			if (!el) return { id: id, connected: false, visible: false, classes: [] };
			return info(el);
		},
		clickPoint(id) {
			const el = lookup(id);
			if (!el || !el.isConnected) return { error: 'element is detached from the document' };
			el.scrollIntoView({ block: 'center', inline: 'center', behavior: 'instant' });
			const rect = el.getBoundingClientRect();
			if (rect.width <= 0 || rect.height <= 0) {
				return { error: 'element has zero size (' + rect.width + 'x' + rect.height + ')' };
			}
			const x = rect.x + rect.width / 2;
			const y = rect.y + rect.height / 2;
			const hit = document.elementFromPoint(x, y);
			if (!hit) return { error: 'element center is outside the viewport' };
			if (hit !== el && !el.contains(hit)) {
				const desc = hit.tagName.toLowerCase() + (hit.id ? '#' + hit.id : '') +
					(hit.classList.length ? '.' + Array.from(hit.classList).join('.') : '');
				return { error: 'element is covered by <' + desc + '>' };
			}
			return { x: x, y: y };
		},
		hasRenderableBody() {
			return !!document.body && (document.body.children.length > 0 || norm(document.body.textContent) !== '');
		},
	};
}
`

// callJS builds an expression that installs the registry (if needed) and calls method with args.
func callJS(method string, args ...interface{}) string {
	encoded := make([]byte, 0, 64)
	for i, a := range args {
		if i > 0 {
			encoded = append(encoded, ',')
		}
		b, err := json.Marshal(a)
		if err != nil {
			b = []byte("null")
		}
		encoded = append(encoded, b...)
	}
	return fmt.Sprintf("(() => { %s\nreturn window.__uiverify.%s(%s); })()", registryJS, method, encoded)
}

// clickPoint is the result of the clickPoint page function.
type clickPoint struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Error string  `json:"error"`
}
