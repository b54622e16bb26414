package renderer

// Shader sources for the deferred pipeline. Every uniform is declared on
// its own line.

// Textured quad in frame space; used for the final blit and as the
// fullscreen vertex stage of the lighting passes
const flatVertexShaderSource = `
#version 410 core
layout (location = 0) in vec3 vertexPosition;
layout (location = 1) in vec2 vertexTexCoord;

uniform mat4 worldViewProjection;

out vec2 texCoord;

void main() {
    texCoord = vertexTexCoord;
    gl_Position = worldViewProjection * vec4(vertexPosition, 1.0);
}
`

const flatFragmentShaderSource = `
#version 410 core
uniform sampler2D diffuseTexture;

in vec2 texCoord;
out vec4 FragColor;

void main() {
    FragColor = texture(diffuseTexture, texCoord);
}
`

const gbufferVertexShaderSource = `
#version 410 core
layout (location = 0) in vec3 vertexPosition;
layout (location = 1) in vec2 vertexTexCoord;
layout (location = 2) in vec3 vertexNormal;
layout (location = 3) in vec4 vertexTangent;

uniform mat4 worldMatrix;
uniform mat4 worldViewProjection;

out vec2 texCoord;
out vec3 normal;
out vec3 tangent;
out vec3 binormal;

void main() {
    gl_Position = worldViewProjection * vec4(vertexPosition, 1.0);
    texCoord = vertexTexCoord;

    mat3 normalMatrix = mat3(worldMatrix);
    normal = normalize(normalMatrix * vertexNormal);
    tangent = normalize(normalMatrix * vertexTangent.xyz);
    binormal = normalize(vertexTangent.w * cross(normal, tangent));
}
`

// Writes albedo to attachment 0 and the world normal, packed to [0,1], to
// attachment 1
const gbufferFragmentShaderSource = `
#version 410 core
layout (location = 0) out vec4 outColor;
layout (location = 1) out vec4 outNormal;

uniform sampler2D diffuseTexture;
uniform sampler2D normalTexture;
uniform vec4 diffuseColor;

in vec2 texCoord;
in vec3 normal;
in vec3 tangent;
in vec3 binormal;

void main() {
    outColor = diffuseColor * texture(diffuseTexture, texCoord);
    if (outColor.a < 0.5) {
        discard;
    }

    vec3 n = texture(normalTexture, texCoord).xyz * 2.0 - 1.0;
    mat3 tangentSpace = mat3(tangent, binormal, normal);
    outNormal = vec4(normalize(tangentSpace * n) * 0.5 + 0.5, 1.0);
}
`

const ambientFragmentShaderSource = `
#version 410 core
uniform sampler2D diffuseTexture;
uniform vec4 ambientColor;
uniform vec2 invFrameSize;

out vec4 FragColor;

void main() {
    vec2 uv = gl_FragCoord.xy * invFrameSize;
    FragColor = ambientColor * texture(diffuseTexture, uv);
}
`

// lightKind: 0 point, 1 spot, 2 directional
const lightFragmentShaderSource = `
#version 410 core
uniform sampler2D depthTexture;
uniform sampler2D colorTexture;
uniform sampler2D normalTexture;
uniform sampler2D cookieTexture;
uniform mat4 invViewProj;
uniform mat4 cookieMatrix;
uniform vec4 viewportRect;
uniform vec2 invFrameSize;
uniform vec3 cameraPosition;
uniform vec3 lightPosition;
uniform vec3 lightDirection;
uniform vec4 lightColor;
uniform float lightRadius;
uniform float coneAngleCos;
uniform float hotspotCos;
uniform int lightKind;

out vec4 FragColor;

void main() {
    vec2 uv = gl_FragCoord.xy * invFrameSize;
    vec2 ndc = (gl_FragCoord.xy - viewportRect.xy) / viewportRect.zw * 2.0 - 1.0;
    float depth = texture(depthTexture, uv).r;
    vec4 world = invViewProj * vec4(ndc, depth * 2.0 - 1.0, 1.0);
    vec3 position = world.xyz / world.w;

    vec3 normal = normalize(texture(normalTexture, uv).xyz * 2.0 - 1.0);
    vec4 albedo = texture(colorTexture, uv);

    vec3 toLight;
    vec3 tint = vec3(1.0);
    float attenuation = 1.0;
    if (lightKind == 2) {
        toLight = -lightDirection;
    } else {
        vec3 d = lightPosition - position;
        float dist = length(d);
        toLight = d / max(dist, 0.0001);
        attenuation = clamp(1.0 - (dist * dist) / (lightRadius * lightRadius), 0.0, 1.0);
        if (lightKind == 1) {
            attenuation *= smoothstep(coneAngleCos, hotspotCos, dot(-toLight, lightDirection));
            vec4 projected = cookieMatrix * vec4(position, 1.0);
            tint = texture(cookieTexture, projected.xy / projected.w * 0.5 + 0.5).rgb;
        }
    }

    float lambert = max(dot(normal, toLight), 0.0);
    vec3 halfway = normalize(toLight + normalize(cameraPosition - position));
    float specular = pow(max(dot(normal, halfway), 0.0), 32.0) * albedo.a;

    vec3 lit = lightColor.rgb * tint * (albedo.rgb * lambert + vec3(specular));
    FragColor = vec4(lit * attenuation, 0.0);
}
`

// Billboards are expanded on the CPU; both the particle and sprite passes
// feed this vertex stage
const billboardVertexShaderSource = `
#version 410 core
layout (location = 0) in vec3 vertexPosition;
layout (location = 1) in vec2 vertexTexCoord;
layout (location = 2) in vec4 vertexColor;

uniform mat4 viewProjectionMatrix;

out vec2 texCoord;
out vec4 color;

void main() {
    texCoord = vertexTexCoord;
    color = vertexColor;
    gl_Position = viewProjectionMatrix * vec4(vertexPosition, 1.0);
}
`

// Soft particles fade out as they approach scene geometry. A fade width of
// zero is a plain depth test.
const particleFragmentShaderSource = `
#version 410 core
uniform sampler2D diffuseTexture;
uniform sampler2D depthBufferTexture;
uniform vec2 invScreenSize;
uniform vec2 projParams;
uniform float softBoundaryFadeWidth;

in vec2 texCoord;
in vec4 color;
out vec4 FragColor;

float linearDepth(float z) {
    float n = projParams.x;
    float f = projParams.y;
    return (2.0 * n * f) / (f + n - (z * 2.0 - 1.0) * (f - n));
}

void main() {
    float sceneDepth = linearDepth(texture(depthBufferTexture, gl_FragCoord.xy * invScreenSize).r);
    float particleDepth = linearDepth(gl_FragCoord.z);
    float diff = sceneDepth - particleDepth;

    float opacity;
    if (softBoundaryFadeWidth > 0.0) {
        opacity = smoothstep(0.0, softBoundaryFadeWidth, diff);
    } else {
        opacity = step(0.0, diff);
    }

    FragColor = color * texture(diffuseTexture, texCoord);
    FragColor.a *= opacity;
}
`

const spriteFragmentShaderSource = `
#version 410 core
uniform sampler2D diffuseTexture;

in vec2 texCoord;
in vec4 color;
out vec4 FragColor;

void main() {
    FragColor = color * texture(diffuseTexture, texCoord);
}
`

const uiVertexShaderSource = `
#version 410 core
layout (location = 0) in vec2 vertexPosition;
layout (location = 1) in vec2 vertexTexCoord;
layout (location = 2) in vec4 vertexColor;

uniform mat4 worldViewProjection;

out vec2 texCoord;
out vec4 color;

void main() {
    texCoord = vertexTexCoord;
    color = vertexColor;
    gl_Position = worldViewProjection * vec4(vertexPosition, 0.0, 1.0);
}
`

// Font atlases are single channel coverage masks
const uiFragmentShaderSource = `
#version 410 core
uniform sampler2D diffuseTexture;
uniform bool isFont;

in vec2 texCoord;
in vec4 color;
out vec4 FragColor;

void main() {
    vec4 texel = texture(diffuseTexture, texCoord);
    if (isFont) {
        FragColor = vec4(color.rgb, color.a * texel.r);
    } else {
        FragColor = color * texel;
    }
}
`
