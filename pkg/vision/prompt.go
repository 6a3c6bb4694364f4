package vision

// DefaultPrompt asks the model for PPE compliance analysis with a
// strict JSON contract. The normalizer still treats the response as
// untrusted; models ignore the "no fences" instruction often enough.
const DefaultPrompt = `Analyze this construction site for PPE (hardhat + hi-vis vest) compliance.

Worker detection:
- Only classify an individual as a construction worker if they appear actively
  engaged in construction tasks AND your detection confidence is >= 0.7.
- Never classify pedestrians, bystanders, mannequins, shadows or reflections
  as workers. Proximity to the site alone is not sufficient.
- Exclude distant figures occupying less than 2% of the image width or height.
- Include an entry in "violations" for every valid worker detected, regardless
  of compliance status, with a brief "reason" for the classification.

Hardhat rules:
- Hardhats are rigid and white, yellow or orange. Soft hats, beanies and caps
  do not count. A hardhat held in the hand or on the ground counts as absent.
- Below 0.7 detection confidence, treat as absent.

Hi-vis vest rules:
- Vests are yellow or orange and must be properly worn, not draped.
- Do not confuse traffic cones or similar objects with vests.
- Below 0.7 detection confidence, treat as absent.

Compliance classification:
- "high" -> no hardhat AND no vest.
- "medium" -> either hardhat OR vest missing.
- "compliant" -> both present.
- "unknown" -> unable to determine due to occlusion or poor visibility.

Site tracking:
- Extract a visible site name from the image if present (e.g. "Trig Road",
  "Compound Section", "Camera 01"); correct obvious spelling errors. Do not
  infer a device number as the site name. If nothing can be inferred, return
  "site_name": "unknown".
- Extract a timestamp from the image if present, formatted as
  "YYYY-MM-DDTHH:MM:SSZ". If missing, return "timestamp": "unknown".
- Provide bounding box coordinates for each worker normalized to the 0-1
  range, and a confidence score for each detection.

Return ONLY valid JSON, one object per image, no markdown and no code fences:
{
  "image_id": "<image_filename>",
  "timestamp": "YYYY-MM-DDTHH:MM:SSZ",
  "site_name": "Site Name",
  "class_reasoning": "Explanation of overall site analysis",
  "violations": [
    {
      "worker_id": 1,
      "risk_level": "high",
      "reason": "Worker without hardhat and hi-vis vest",
      "location": {"x": 0.25, "y": 0.40, "width": 0.1, "height": 0.2},
      "confidence": 0.95
    }
  ]
}`
