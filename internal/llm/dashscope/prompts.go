package dashscope

// 各环节的提示词。输出格式约束尽量收紧，解析端仍做兜底清理

const layoutDetectionPrompt = `你将看到若干张 Excel 工作表的截图，请判断每张表的版面类型：
1 = 扁平式：一行一条费用记录，只有一个表头行；
2 = 主表+子表：先有一块主信息（合同、公司等），下面跟着多行费用明细；
3 = 分块式：整张表是一个自由排布的表格，不严格一行一条记录；
0 = 无法判断。
按图片输入顺序返回 JSON 对象，键为 "index_1"、"index_2"…，值为版面编号。
只输出 JSON，不要任何解释。`

const headerDetectionPrompt = `下面是一张 Excel 表格开头若干行的内容（JSON 数组，每行一个数组）。
请找出真正的表头行（列名所在的行），返回它的索引（0 起）。
只输出一个整数，不要任何解释。`

const tableTranscriptionPrompt = `请把图片中的表格完整转写为 Markdown。
多张图片是同一张表按行切分的连续片段，请按输入顺序合并为一份连贯的转写结果，
表头只保留一次，不要遗漏任何行。只输出 Markdown，不要任何解释。`

const extractionPrompt = `你是数据结构化助手。请从下面的费用单 Markdown 内容中提取费用明细，
输出一个 JSON 对象，顶层键为 "费用明细"，值为数组，每条记录包含以下字段：
外销合同、船代公司、费用名称、货币代码、金额、备注。
要求：
- 所有字段值都是字符串，缺失的字段置为 ""；
- 金额去掉货币符号和千分位，保留两位小数；金额为空或 "-" 时置为 "0.00"；
- 货币代码按符号归一：￥/RMB 为 CNY，$ 为 USD；
- 忽略合计、总计等汇总行；
- 只输出 JSON 对象本身，不要代码块标记和解释。

文本内容：
`
