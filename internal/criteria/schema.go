package criteria

// criteriaSchemaJSON is the loose schema applied to the raw extraction
// output before decoding. It only pins the shapes the decoder relies on;
// limit coercion handles the type drift models produce for "limite".
const criteriaSchemaJSON = `{
  "type": "object",
  "properties": {
    "usar_similaridade": {"type": ["boolean", "null"]},
    "limite": {"type": ["integer", "number", "string", "array", "null"]},
    "filtros": {
      "type": ["object", "null"],
      "properties": {
        "idiomas": {
          "type": ["array", "null"],
          "items": {
            "type": "object",
            "properties": {
              "idioma": {"type": "string"},
              "nivel_minimo": {"type": ["string", "null"]},
              "incluir_superiores": {"type": ["boolean", "null"]}
            },
            "required": ["idioma"]
          }
        },
        "habilidades": {"type": ["array", "null"], "items": {"type": "string"}},
        "formacao": {
          "type": ["object", "null"],
          "properties": {
            "nivel": {"type": ["string", "null"]},
            "curso": {"type": ["string", "null"]}
          }
        },
        "localizacao": {"type": ["string", "null"]},
        "sexo": {"type": ["string", "null"]}
      }
    }
  }
}`
