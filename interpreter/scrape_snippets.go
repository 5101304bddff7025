package interpreter

// These JS payloads are the four in-page extraction functions:
// single, schema, list, list-auto. Each constant is a complete function
// literal ready to hand to Page.Eval, which calls it immediately with the
// given arguments. All share the same deep-query helper so that selectors
// may cross iframe (":>>") and shadow-DOM (">>") boundaries; the helper is
// declared inline in every snippet rather than installed globally on the
// page, so nothing persists across navigations.
const deepQueryHelperJS = `
function __wfDeepQuery(root, selector) {
	if (!selector) return root === document ? document.body : root;
	let frames = selector.split(':>>').map(s => s.trim());
	let scope = root;
	for (let i = 0; i < frames.length - 1; i++) {
		const host = scope.querySelector(frames[i]);
		if (!host || !host.contentDocument) return null;
		scope = host.contentDocument;
	}
	const last = frames[frames.length - 1];
	let shadowParts = last.split('>>').map(s => s.trim());
	let node = scope;
	for (let i = 0; i < shadowParts.length - 1; i++) {
		const host = node.querySelector(shadowParts[i]);
		if (!host || !host.shadowRoot) return null;
		node = host.shadowRoot;
	}
	return node.querySelector(shadowParts[shadowParts.length - 1]);
}
function __wfDeepQueryAll(root, selector) {
	if (!selector) return [];
	let frames = selector.split(':>>').map(s => s.trim());
	let scope = root;
	for (let i = 0; i < frames.length - 1; i++) {
		const host = scope.querySelector(frames[i]);
		if (!host || !host.contentDocument) return [];
		scope = host.contentDocument;
	}
	const last = frames[frames.length - 1];
	let shadowParts = last.split('>>').map(s => s.trim());
	let node = scope;
	for (let i = 0; i < shadowParts.length - 1; i++) {
		const host = node.querySelector(shadowParts[i]);
		if (!host || !host.shadowRoot) return [];
		node = host.shadowRoot;
	}
	return Array.from(node.querySelectorAll(shadowParts[shadowParts.length - 1]));
}
function __wfExtractField(el, tag, attribute) {
	if (!el) return '';
	if (attribute) return el.getAttribute(attribute) || '';
	if (tag === 'html') return el.outerHTML || '';
	return (el.innerText || el.textContent || '').trim();
}
`

// scrapeSingleJS extracts text+html for one element (or document.body when
// selector is empty).
const scrapeSingleJS = `(selector) => {` + deepQueryHelperJS + `
	const el = __wfDeepQuery(document, selector);
	if (!el) return null;
	return { text: __wfExtractField(el, 'text', ''), html: __wfExtractField(el, 'html', '') };
}`

// scrapeSchemaJS extracts a fields map { name: {selector, tag, attribute} }.
const scrapeSchemaJS = `(fields) => {` + deepQueryHelperJS + `
	const out = {};
	for (const name in fields) {
		const f = fields[name];
		const el = __wfDeepQuery(document, f.selector);
		out[name] = __wfExtractField(el, f.tag, f.attribute);
	}
	return out;
}`

// scrapeListJS extracts fields for every element under listSelector.
const scrapeListJS = `(listSelector, fields) => {` + deepQueryHelperJS + `
	const items = __wfDeepQueryAll(document, listSelector);
	return items.map(item => {
		const row = {};
		for (const name in fields) {
			const f = fields[name];
			const el = f.selector ? __wfDeepQuery(item, f.selector) : item;
			row[name] = __wfExtractField(el, f.tag, f.attribute);
		}
		return row;
	});
}`

// scrapeListAutoJS heuristically proposes list-item candidates: elements
// with several DOM siblings of the same tag/class that carry non-trivial
// text, returning {selector, innerText} pairs for the host to choose from.
const scrapeListAutoJS = `(listSelector) => {
	const candidates = listSelector ? document.querySelectorAll(listSelector) : document.querySelectorAll('body *');
	const groups = new Map();
	candidates.forEach(el => {
		if (!el.className || typeof el.className !== 'string') return;
		const key = el.tagName + '.' + el.className.trim().split(/\s+/).join('.');
		if (!groups.has(key)) groups.set(key, []);
		groups.get(key).push(el);
	});
	const out = [];
	for (const [key, els] of groups) {
		if (els.length < 3) continue;
		const sample = els[0];
		const text = (sample.innerText || '').trim();
		if (!text) continue;
		out.push({ selector: '.' + sample.className.trim().split(/\s+/).join('.'), innerText: text });
	}
	return out.slice(0, 50);
}`

// scrollExtentJS reports the scrollable extent of the page, used by the
// pagination engine to detect "no more content".
const scrollExtentJS = `() => {
	const de = document.scrollingElement || document.documentElement;
	return { scrollTop: de.scrollTop, scrollHeight: de.scrollHeight, clientHeight: de.clientHeight };
}`

// firstItemDigestJS returns a content signature built from up to three
// items' text, used by clickNext to detect whether a click advanced the
// page.
const firstItemDigestJS = `(listSelector) => {` + deepQueryHelperJS + `
	const items = __wfDeepQueryAll(document, listSelector).slice(0, 3);
	return items.map(i => (i.innerText || '').trim()).join('|');
}`
