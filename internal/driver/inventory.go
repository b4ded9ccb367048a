package driver

// Inventory describes the interactive surface of a page.
type Inventory struct {
	URL      string          `json:"url" yaml:"url"`
	Title    string          `json:"title" yaml:"title"`
	Elements []InventoryItem `json:"elements" yaml:"elements"`
}

// InventoryItem is one interactive element with candidate selectors, most
// specific first, suitable for a selector group.
type InventoryItem struct {
	Type        string   `json:"type" yaml:"type"` // button, link, text, select, checkbox, ...
	Text        string   `json:"text,omitempty" yaml:"text,omitempty"`
	Placeholder string   `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Selectors   []string `json:"selectors" yaml:"selectors"`
}

// InventoryScript is evaluated in the page by browser backends. It returns
// {url, title, elements: [{type, text, placeholder, selectors}]} with
// selectors already in the textual form accepted by selector.Parse.
const InventoryScript = `() => {
	const isIdent = (s) => !!s && !/^[0-9]|^-[0-9]/.test(s) && !/[.:#\[\]()>~+*\/\\\s"']/.test(s);
	const unique = (sel) => { try { return document.querySelectorAll(sel).length === 1; } catch (e) { return false; } };
	const visible = (el) => !!el.offsetParent;

	function candidates(el) {
		const out = [];
		const tag = el.tagName.toLowerCase();
		if (el.id && isIdent(el.id)) out.push('#' + el.id);
		if (el.name) out.push('name=' + el.name);
		const testId = el.getAttribute('data-testid');
		if (testId) out.push('[data-testid="' + testId + '"]');
		if (typeof el.className === 'string') {
			const classes = el.className.trim().split(/\s+/).filter(isIdent).slice(0, 2);
			if (classes.length) {
				const sel = tag + '.' + classes.join('.');
				if (unique(sel)) out.push(sel);
			}
		}
		const text = (el.textContent || '').trim().replace(/\s+/g, ' ');
		if (tag === 'a' && text && text.length <= 40) out.push('link=' + text);
		else if (text && text.length <= 40 && tag === 'button') out.push('text=' + text);
		if (!out.length && el.parentElement) {
			const idx = Array.from(el.parentElement.children).indexOf(el) + 1;
			out.push(tag + ':nth-child(' + idx + ')');
		}
		return out;
	}

	const elements = [];
	const seen = new Set();
	const add = (el, type) => {
		if (!visible(el) || seen.has(el)) return;
		seen.add(el);
		elements.push({
			type: type,
			text: (el.textContent || el.value || '').trim().slice(0, 50),
			placeholder: el.placeholder || '',
			selectors: candidates(el),
		});
	};

	document.querySelectorAll('button, [role="button"], input[type="submit"], input[type="button"]').forEach(el => add(el, 'button'));
	document.querySelectorAll('input[type="checkbox"], input[type="radio"]').forEach(el => add(el, el.type));
	document.querySelectorAll('input:not([type="hidden"]), textarea').forEach(el => add(el, el.type || 'text'));
	document.querySelectorAll('select').forEach(el => add(el, 'select'));
	document.querySelectorAll('a[href]').forEach(el => {
		const href = el.getAttribute('href');
		if (href.startsWith('javascript:')) return;
		add(el, 'link');
	});

	return { url: window.location.href, title: document.title, elements: elements };
}`
